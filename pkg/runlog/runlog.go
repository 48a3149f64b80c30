// Package runlog appends one CSV row per task outcome plus a summary row per
// run. The file accumulates across runs; the header is written only once.
package runlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"airgapintel/pkg/models"
)

// DefaultFileName is the log's name under the output root
const DefaultFileName = "misp_feed_download_log.csv"

// Header lists the CSV columns in order
var Header = []string{
	"run_id", "timestamp", "category", "feed_name", "source_url", "status", "error_detail",
	"run_start", "run_end", "duration_seconds", "total_attempted", "total_succeeded", "total_failed",
}

// Row is one log line. Task rows leave the summary fields zero.
type Row struct {
	RunID       string
	Timestamp   time.Time
	Category    string
	FeedName    string
	SourceURL   string
	Status      string
	ErrorDetail string

	RunStart       time.Time
	RunEnd         time.Time
	Duration       time.Duration
	TotalAttempted int
	TotalSucceeded int
	TotalFailed    int
}

// Record renders the row as CSV fields
func (r Row) Record() []string {
	rec := []string{
		r.RunID,
		stamp(r.Timestamp),
		r.Category,
		r.FeedName,
		r.SourceURL,
		r.Status,
		r.ErrorDetail,
		"", "", "", "", "", "",
	}
	if r.Status == models.StatusSummary {
		rec[7] = stamp(r.RunStart)
		rec[8] = stamp(r.RunEnd)
		rec[9] = strconv.FormatFloat(r.Duration.Seconds(), 'f', 2, 64)
		rec[10] = strconv.Itoa(r.TotalAttempted)
		rec[11] = strconv.Itoa(r.TotalSucceeded)
		rec[12] = strconv.Itoa(r.TotalFailed)
	}
	return rec
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// Writer appends rows for a single run. It is safe for concurrent use.
type Writer struct {
	mu    sync.Mutex
	file  *os.File
	csv   *csv.Writer
	runID string
	now   func() time.Time
	err   error
}

// Open opens path for appending, creating it and its directory if needed
func Open(path, runID string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat run log: %w", err)
	}

	w := &Writer{
		file:  file,
		csv:   csv.NewWriter(file),
		runID: runID,
		now:   time.Now,
	}

	if info.Size() == 0 {
		if err := w.write(Header); err != nil {
			file.Close()
			return nil, err
		}
	}

	return w, nil
}

// Record logs a task outcome as a success or failed row
func (w *Writer) Record(o models.TaskOutcome) {
	row := Row{
		RunID:     w.runID,
		Timestamp: o.At,
		Category:  string(o.Task.Category),
		FeedName:  o.Task.DisplayName,
		SourceURL: o.Task.SourceURL,
		Status:    models.StatusSuccess,
	}
	if row.Timestamp.IsZero() {
		row.Timestamp = w.now()
	}
	if !o.Success {
		row.Status = models.StatusFailed
		row.ErrorDetail = "unknown error"
		if o.Error != nil {
			row.ErrorDetail = o.Error.Error()
		}
	}
	w.append(row)
}

// RecordDiscovery logs an adapter that produced no tasks
func (w *Writer) RecordDiscovery(d models.DiscoveryError) {
	at := d.At
	if at.IsZero() {
		at = w.now()
	}
	w.append(Row{
		RunID:       w.runID,
		Timestamp:   at,
		Category:    string(d.Category),
		FeedName:    d.Source,
		SourceURL:   d.URL,
		Status:      models.StatusDiscoveryError,
		ErrorDetail: d.Detail,
	})
}

// Summarize writes the run's closing summary row
func (w *Writer) Summarize(r *models.RunResult) error {
	w.append(Row{
		RunID:          w.runID,
		Timestamp:      w.now(),
		Status:         models.StatusSummary,
		RunStart:       r.StartedAt,
		RunEnd:         r.FinishedAt,
		Duration:       r.Duration(),
		TotalAttempted: r.TasksAttempted,
		TotalSucceeded: r.TasksSucceeded,
		TotalFailed:    r.TasksFailed,
	})
	return w.Err()
}

// Err returns the first write error seen
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Close flushes and closes the file
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return w.err
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil && w.err == nil {
		w.err = fmt.Errorf("failed to flush run log: %w", err)
	}
	if err := w.file.Close(); err != nil && w.err == nil {
		w.err = fmt.Errorf("failed to close run log: %w", err)
	}
	w.file = nil
	return w.err
}

func (w *Writer) append(r Row) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		if w.err == nil {
			w.err = fmt.Errorf("run log is closed")
		}
		return
	}
	if err := w.write(r.Record()); err != nil && w.err == nil {
		w.err = err
	}
}

// write flushes every row so an interrupted run keeps what it logged
func (w *Writer) write(rec []string) error {
	if err := w.csv.Write(rec); err != nil {
		return fmt.Errorf("failed to write run log: %w", err)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("failed to write run log: %w", err)
	}
	return nil
}
