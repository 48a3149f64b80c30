package errors

import (
	"errors"
	"fmt"
)

// Kind classifies where in the pipeline an error originated
type Kind string

const (
	KindDiscovery Kind = "discovery"
	KindFetch     Kind = "fetch"
	KindPersist   Kind = "persist"
	KindConfig    Kind = "config"
)

// ErrEmptyBody marks a 2xx response that carried no content
var ErrEmptyBody = errors.New("empty body")

// Error represents a pipeline error with type information
type Error struct {
	Kind   Kind
	Op     string
	URL    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind) + " error"
	if e.Op != "" {
		msg += " (" + e.Op + ")"
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" status %d", e.Status)
	}
	if e.URL != "" {
		msg += " " + e.URL
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindName lets callers without this package read the kind
func (e *Error) KindName() string {
	return string(e.Kind)
}

// Retryable reports whether a fetch error is worth another attempt
func (e *Error) Retryable() bool {
	if e.Kind != KindFetch || errors.Is(e.Err, ErrEmptyBody) {
		return false
	}
	return IsRetryableStatusCode(e.Status)
}

// Discovery wraps a failure to enumerate a source
func Discovery(op, url string, err error) *Error {
	return &Error{Kind: KindDiscovery, Op: op, URL: url, Err: err}
}

// Fetch wraps a download failure; status is 0 for transport errors
func Fetch(url string, status int, err error) *Error {
	return &Error{Kind: KindFetch, Op: "fetch", URL: url, Status: status, Err: err}
}

// Persist wraps a write failure
func Persist(path string, err error) *Error {
	return &Error{Kind: KindPersist, Op: "persist", URL: path, Err: err}
}

// Config wraps an invalid configuration value
func Config(op string, err error) *Error {
	return &Error{Kind: KindConfig, Op: op, Err: err}
}

// KindOf returns the kind of err, or "" when it is not a pipeline error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable()
	}
	return false
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 500, 502, 503, 504: // Server errors
		return true
	case 401, 403, 404: // Client errors that won't change
		return false
	default:
		return statusCode >= 500 // Retry all 5xx errors
	}
}
