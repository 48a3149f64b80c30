package models

import (
	"errors"
	"time"
)

// Category groups feeds from one provider or theme and names the output subdirectory
type Category string

// FetchTask is one downloadable resource produced by a source adapter
type FetchTask struct {
	Category    Category `json:"category" yaml:"category"`
	DisplayName string   `json:"display_name" yaml:"display_name"`
	SourceURL   string   `json:"source_url" yaml:"source_url"`
	// UserAgent overrides the client default when a provider rejects unknown agents
	UserAgent string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
}

// Outcome status values written to the run log
const (
	StatusSuccess        = "success"
	StatusFailed         = "failed"
	StatusDiscoveryError = "discovery_error"
	StatusSummary        = "summary"
)

// TaskOutcome is the result of fetching and persisting a single task
type TaskOutcome struct {
	Task     FetchTask
	Success  bool
	Error    error
	Path     string
	Size     int
	SHA256   string
	Duration time.Duration
	At       time.Time
}

// TaskError records a failed task in the run result
type TaskError struct {
	Task   FetchTask
	Kind   string
	Detail string
}

// DiscoveryError records an adapter that could not produce tasks
type DiscoveryError struct {
	Category Category
	Source   string
	URL      string
	Detail   string
	At       time.Time
}

// PersistedFile describes a feed file written to disk during the run
type PersistedFile struct {
	Task      FetchTask
	Path      string
	Size      int
	SHA256    string
	FetchedAt time.Time
}

// RunResult accumulates the outcome of one harvesting run
type RunResult struct {
	RunID           string
	DaysBack        int
	StartedAt       time.Time
	FinishedAt      time.Time
	TasksAttempted  int
	TasksSucceeded  int
	TasksFailed     int
	Errors          []TaskError
	DiscoveryErrors []DiscoveryError
	Persisted       []PersistedFile
}

// NewRunResult creates a run result stamped with its start time
func NewRunResult(runID string, daysBack int, startedAt time.Time) *RunResult {
	return &RunResult{
		RunID:     runID,
		DaysBack:  daysBack,
		StartedAt: startedAt,
	}
}

// Apply folds one task outcome into the counters
func (r *RunResult) Apply(o TaskOutcome) {
	r.TasksAttempted++
	if o.Success {
		r.TasksSucceeded++
		r.Persisted = append(r.Persisted, PersistedFile{
			Task:      o.Task,
			Path:      o.Path,
			Size:      o.Size,
			SHA256:    o.SHA256,
			FetchedAt: o.At,
		})
		return
	}

	r.TasksFailed++
	detail := "unknown error"
	if o.Error != nil {
		detail = o.Error.Error()
	}
	r.Errors = append(r.Errors, TaskError{
		Task:   o.Task,
		Kind:   errorKind(o.Error),
		Detail: detail,
	})
}

// Finalize stamps the finish time
func (r *RunResult) Finalize(finishedAt time.Time) {
	r.FinishedAt = finishedAt
}

// Duration returns the elapsed run time, zero until finalized
func (r *RunResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// kinded is satisfied by errors carrying a taxonomy kind
type kinded interface {
	KindName() string
}

func errorKind(err error) string {
	var k kinded
	if errors.As(err, &k) {
		return k.KindName()
	}
	return "unknown"
}
