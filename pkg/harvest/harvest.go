// Package harvest runs one collection pass: enumerate every source for the
// requested window, fetch what they produce, and leave behind the run log,
// manifest and metrics.
//
// The Harvester owns no I/O of its own. Output tree, run log, executor and
// metrics are all supplied by the caller, which keeps a run reproducible in
// tests with httptest servers and temporary directories.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"airgapintel/internal/downloader"
	errs "airgapintel/pkg/errors"
	"airgapintel/pkg/logger"
	"airgapintel/pkg/manifest"
	"airgapintel/pkg/models"
	"airgapintel/pkg/runlog"
	"airgapintel/pkg/source"
	"airgapintel/pkg/window"
)

// Executor fetches and persists tasks, folding outcomes into result
type Executor interface {
	RunInto(ctx context.Context, tasks []models.FetchTask, result *models.RunResult, extra ...downloader.Recorder)
}

// Output is the root directory of the feed tree
type Output interface {
	Ensure() error
	Root() string
	WriteArtifact(name string, data []byte) (string, error)
}

// RunLog receives one row per outcome and a closing summary
type RunLog interface {
	Record(o models.TaskOutcome)
	RecordDiscovery(d models.DiscoveryError)
	Summarize(r *models.RunResult) error
	Close() error
}

// LogOpener opens the run log for a run ID
type LogOpener func(runID string) (RunLog, error)

// CSVLog opens the append-only CSV log at path
func CSVLog(path string) LogOpener {
	return func(runID string) (RunLog, error) {
		w, err := runlog.Open(path, runID)
		if err != nil {
			return nil, err
		}
		return w, nil
	}
}

// Metrics counts discovery errors and stamps the finished run
type Metrics interface {
	RecordDiscovery(d models.DiscoveryError)
	Finish(r *models.RunResult)
	WriteTextfile(path string) error
}

// Progress is told how many tasks a run will attempt before it starts
type Progress interface {
	downloader.Recorder
	Start(total int)
	Finish()
}

// Config wires a Harvester
type Config struct {
	Adapters []source.Adapter
	Executor Executor
	Output   Output
	OpenLog  LogOpener

	// optional
	Metrics       Metrics
	MetricsPath   string
	WriteManifest bool
	Progress      Progress
	Logger        logger.Logger
	Now           func() time.Time
	NewRunID      func() string
}

// RunConfig is what the operator chose for one run
type RunConfig struct {
	DaysBack  int
	Reference time.Time
}

// Harvester runs collection passes
type Harvester struct {
	cfg    Config
	logger logger.Logger
}

// New validates the required collaborators
func New(cfg Config) (*Harvester, error) {
	var errList []error
	if cfg.Executor == nil {
		errList = append(errList, errors.New("executor is required"))
	}
	if cfg.Output == nil {
		errList = append(errList, errors.New("output is required"))
	}
	if cfg.OpenLog == nil {
		errList = append(errList, errors.New("run log opener is required"))
	}
	if err := errors.Join(errList...); err != nil {
		return nil, fmt.Errorf("invalid harvester configuration: %w", err)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewRunID == nil {
		cfg.NewRunID = uuid.NewString
	}

	return &Harvester{cfg: cfg, logger: cfg.Logger}, nil
}

// Execute performs one run. The error is non-nil only for conditions that
// stop the run before any task is attempted; per-feed failures are reported
// in the result.
func (h *Harvester) Execute(ctx context.Context, rc RunConfig) (*models.RunResult, error) {
	if err := h.cfg.Output.Ensure(); err != nil {
		return nil, err
	}

	now := h.cfg.Now()
	ref := rc.Reference
	if ref.IsZero() {
		ref = now
	}
	w := window.New(rc.DaysBack, ref)

	runID := h.cfg.NewRunID()
	log := h.logger.WithField("run_id", runID)

	runLog, err := h.cfg.OpenLog(runID)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}
	defer func() {
		if err := runLog.Close(); err != nil {
			log.WithError(err).Error("Failed to close run log")
		}
	}()

	result := models.NewRunResult(runID, w.DaysBack, now)
	log.InfoWithFields("Run started", map[string]interface{}{
		"days_back": w.DaysBack,
		"from":      w.Start().Format("2006-01-02"),
		"to":        w.Reference.Format("2006-01-02"),
		"sources":   len(h.cfg.Adapters),
		"output":    h.cfg.Output.Root(),
	})

	tasks := h.discover(ctx, w, result, runLog, log)

	extra := []downloader.Recorder{runLog}
	if h.cfg.Progress != nil {
		h.cfg.Progress.Start(len(tasks))
		extra = append(extra, h.cfg.Progress)
	}
	h.cfg.Executor.RunInto(ctx, tasks, result, extra...)
	if h.cfg.Progress != nil {
		h.cfg.Progress.Finish()
	}

	result.Finalize(h.cfg.Now())

	if err := runLog.Summarize(result); err != nil {
		log.WithError(err).Error("Failed to write run log")
	}
	h.writeManifest(result, log)
	h.writeMetrics(result, log)

	log.InfoWithFields("Run finished", map[string]interface{}{
		"attempted":        result.TasksAttempted,
		"succeeded":        result.TasksSucceeded,
		"failed":           result.TasksFailed,
		"discovery_errors": len(result.DiscoveryErrors),
		"duration":         result.Duration().String(),
	})

	return result, nil
}

// discover asks every adapter for tasks in order. A failing adapter is
// recorded and skipped.
func (h *Harvester) discover(ctx context.Context, w window.Window, result *models.RunResult, runLog RunLog, log logger.Logger) []models.FetchTask {
	var tasks []models.FetchTask

	for i, a := range h.cfg.Adapters {
		if ctx.Err() != nil {
			log.WarnWithFields("Discovery stopped", map[string]interface{}{
				"reason":  ctx.Err().Error(),
				"skipped": len(h.cfg.Adapters) - i,
			})
			break
		}

		found, err := a.ListTasks(ctx, w)
		if err != nil {
			d := models.DiscoveryError{
				Category: a.Category(),
				Source:   a.Name(),
				URL:      failedURL(err),
				Detail:   err.Error(),
				At:       h.cfg.Now(),
			}
			result.DiscoveryErrors = append(result.DiscoveryErrors, d)
			runLog.RecordDiscovery(d)
			if h.cfg.Metrics != nil {
				h.cfg.Metrics.RecordDiscovery(d)
			}
			log.WithError(err).WarnWithFields("Source discovery failed", map[string]interface{}{
				"category": string(d.Category),
				"source":   d.Source,
			})
			continue
		}

		log.DebugWithFields("Source discovered", map[string]interface{}{
			"category": string(a.Category()),
			"source":   a.Name(),
			"tasks":    len(found),
		})
		tasks = append(tasks, found...)
	}

	return tasks
}

func failedURL(err error) string {
	var e *errs.Error
	if errors.As(err, &e) {
		return e.URL
	}
	return ""
}

func (h *Harvester) writeManifest(result *models.RunResult, log logger.Logger) {
	if !h.cfg.WriteManifest {
		return
	}
	m := manifest.FromResult(result, h.cfg.Output.Root(), h.cfg.Now())
	data, err := m.Marshal()
	if err == nil {
		_, err = h.cfg.Output.WriteArtifact(manifest.FileName, data)
	}
	if err != nil {
		log.WithError(err).Warn("Failed to write manifest")
	}
}

func (h *Harvester) writeMetrics(result *models.RunResult, log logger.Logger) {
	if h.cfg.Metrics == nil {
		return
	}
	h.cfg.Metrics.Finish(result)
	if h.cfg.MetricsPath == "" {
		return
	}
	if err := h.cfg.Metrics.WriteTextfile(h.cfg.MetricsPath); err != nil {
		log.WithError(err).Warn("Failed to write metrics")
	}
}
