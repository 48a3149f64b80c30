package logger

import (
	"fmt"
	"strings"
	"sync"
)

// TestLogger captures log messages so tests can assert on them
type TestLogger struct {
	*capture
	fields map[string]interface{}
	err    error
}

type capture struct {
	mu       sync.Mutex
	messages []LogMessage
}

// LogMessage represents a captured log message
type LogMessage struct {
	Level   string
	Message string
	Fields  map[string]interface{}
	Error   error
}

// NewTestLogger creates a new test logger
func NewTestLogger() *TestLogger {
	return &TestLogger{capture: &capture{}}
}

func (l *TestLogger) Debug(msg string) { l.log("DEBUG", msg, nil) }
func (l *TestLogger) Info(msg string)  { l.log("INFO", msg, nil) }
func (l *TestLogger) Warn(msg string)  { l.log("WARN", msg, nil) }
func (l *TestLogger) Error(msg string) { l.log("ERROR", msg, nil) }

func (l *TestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	l.log("DEBUG", msg, fields)
}

func (l *TestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	l.log("INFO", msg, fields)
}

func (l *TestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	l.log("WARN", msg, fields)
}

func (l *TestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.log("ERROR", msg, fields)
}

// WithField adds a field to the logger context
func (l *TestLogger) WithField(key string, value interface{}) Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithFields adds multiple fields to the logger context
func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	return &TestLogger{capture: l.capture, fields: l.merge(fields), err: l.err}
}

// WithError adds an error to the logger context
func (l *TestLogger) WithError(err error) Logger {
	return &TestLogger{capture: l.capture, fields: l.fields, err: err}
}

func (l *TestLogger) merge(additional map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(l.fields)+len(additional))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range additional {
		merged[k] = v
	}
	return merged
}

func (l *TestLogger) log(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = append(l.messages, LogMessage{
		Level:   level,
		Message: msg,
		Fields:  l.merge(fields),
		Error:   l.err,
	})
}

// GetMessages returns all captured log messages
func (l *TestLogger) GetMessages() []LogMessage {
	l.mu.Lock()
	defer l.mu.Unlock()

	messages := make([]LogMessage, len(l.messages))
	copy(messages, l.messages)
	return messages
}

// GetMessagesByLevel returns all messages of a specific level
func (l *TestLogger) GetMessagesByLevel(level string) []LogMessage {
	var filtered []LogMessage
	for _, msg := range l.GetMessages() {
		if msg.Level == level {
			filtered = append(filtered, msg)
		}
	}
	return filtered
}

// HasMessage checks if a message with the given text was logged
func (l *TestLogger) HasMessage(text string) bool {
	for _, msg := range l.GetMessages() {
		if msg.Message == text {
			return true
		}
	}
	return false
}

// String returns all log messages, one per line
func (l *TestLogger) String() string {
	var b strings.Builder
	for _, msg := range l.GetMessages() {
		fmt.Fprintf(&b, "[%s] %s", msg.Level, msg.Message)
		if len(msg.Fields) > 0 {
			fmt.Fprintf(&b, " fields=%v", msg.Fields)
		}
		if msg.Error != nil {
			fmt.Fprintf(&b, " error=%v", msg.Error)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
