package downloader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"hash/fnv"
	"sync"
	"time"

	errs "airgapintel/pkg/errors"
	"airgapintel/pkg/fetch"
	"airgapintel/pkg/logger"
	"airgapintel/pkg/models"
	"airgapintel/pkg/sanitize"
)

// MaxWorkers caps concurrent downloads regardless of configuration
const MaxWorkers = 10

// FeedStorage persists fetched feed bodies
type FeedStorage interface {
	Persist(category, name string, data []byte) (string, error)
}

// Recorder receives every task outcome as it completes. Recorders are called
// from a single goroutine.
type Recorder interface {
	Record(o models.TaskOutcome)
}

// Config holds the executor's collaborators
type Config struct {
	Workers   int
	Fetcher   fetch.Fetcher
	Storage   FeedStorage
	Recorders []Recorder
	Logger    logger.Logger
}

// WorkerPool fetches and persists tasks on a bounded set of workers.
//
// Each worker owns a queue, and a task is routed by a hash of its destination
// path, so two tasks writing the same file always run on the same worker and
// never race. With one worker tasks run strictly in the order given.
type WorkerPool struct {
	numWorkers int
	fetcher    fetch.Fetcher
	storage    FeedStorage
	recorders  []Recorder
	logger     logger.Logger
}

// NewWorkerPool creates an executor; the worker count is clamped to [1, MaxWorkers]
func NewWorkerPool(cfg Config) *WorkerPool {
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	n := cfg.Workers
	if n < 1 {
		n = 1
	}
	if n > MaxWorkers {
		n = MaxWorkers
	}

	return &WorkerPool{
		numWorkers: n,
		fetcher:    cfg.Fetcher,
		storage:    cfg.Storage,
		recorders:  cfg.Recorders,
		logger:     cfg.Logger,
	}
}

// Workers returns the effective worker count
func (wp *WorkerPool) Workers() int {
	return wp.numWorkers
}

// Run processes tasks into a fresh result
func (wp *WorkerPool) Run(ctx context.Context, tasks []models.FetchTask) *models.RunResult {
	result := models.NewRunResult("", 0, time.Now())
	wp.RunInto(ctx, tasks, result)
	result.Finalize(time.Now())
	return result
}

// RunInto processes tasks and folds every outcome into result. Outcomes go to
// the pool's recorders and then to extra, which are scoped to this call. It
// returns when all dispatched tasks have finished. Cancelling ctx stops
// dispatch; tasks that never started are not counted.
func (wp *WorkerPool) RunInto(ctx context.Context, tasks []models.FetchTask, result *models.RunResult, extra ...Recorder) {
	logger.LogComponentStart(wp.logger, "executor", map[string]interface{}{
		"num_workers": wp.numWorkers,
		"tasks":       len(tasks),
	})

	queues := make([]chan models.FetchTask, wp.numWorkers)
	for i := range queues {
		queues[i] = make(chan models.FetchTask, 2)
	}
	results := make(chan models.TaskOutcome, wp.numWorkers)

	var wg sync.WaitGroup
	for i := range queues {
		wg.Add(1)
		go wp.worker(ctx, i, queues[i], results, &wg)
	}

	go func() {
		wp.dispatch(ctx, tasks, queues)
		wg.Wait()
		close(results)
	}()

	// single collector: the only goroutine touching result and recorders
	for outcome := range results {
		result.Apply(outcome)
		for _, r := range wp.recorders {
			r.Record(outcome)
		}
		for _, r := range extra {
			r.Record(outcome)
		}
	}

	wp.logger.InfoWithFields("Executor finished", map[string]interface{}{
		"attempted": result.TasksAttempted,
		"succeeded": result.TasksSucceeded,
		"failed":    result.TasksFailed,
	})
}

func (wp *WorkerPool) dispatch(ctx context.Context, tasks []models.FetchTask, queues []chan models.FetchTask) {
	defer func() {
		for _, q := range queues {
			close(q)
		}
	}()

	for i, task := range tasks {
		q := queues[partition(task, len(queues))]
		select {
		case q <- task:
		case <-ctx.Done():
			wp.logger.WarnWithFields("Dispatch stopped", map[string]interface{}{
				"reason":      ctx.Err().Error(),
				"not_started": len(tasks) - i,
			})
			return
		}
	}
}

// partition maps a task to a worker by its destination path
func partition(task models.FetchTask, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(sanitize.Filename(string(task.Category))))
	h.Write([]byte{0})
	h.Write([]byte(sanitize.Filename(task.DisplayName)))
	return int(h.Sum32() % uint32(n))
}

func (wp *WorkerPool) worker(ctx context.Context, id int, queue <-chan models.FetchTask, results chan<- models.TaskOutcome, wg *sync.WaitGroup) {
	defer wg.Done()

	for task := range queue {
		if ctx.Err() != nil {
			// drain without starting; dispatch has already stopped
			continue
		}
		results <- wp.processJob(ctx, task, id)
	}
}

// processJob fetches and persists a single task
func (wp *WorkerPool) processJob(ctx context.Context, task models.FetchTask, workerID int) models.TaskOutcome {
	start := time.Now()
	outcome := models.TaskOutcome{Task: task}
	fields := map[string]interface{}{
		"worker_id": workerID,
		"category":  string(task.Category),
		"feed":      task.DisplayName,
		"url":       task.SourceURL,
	}

	fail := func(err error) models.TaskOutcome {
		outcome.Error = err
		outcome.Duration = time.Since(start)
		outcome.At = time.Now()
		fields["error"] = err.Error()
		wp.logger.WarnWithFields("Feed failed", fields)
		return outcome
	}

	resp, err := wp.fetcher.Fetch(ctx, task.SourceURL, fetch.WithUserAgent(task.UserAgent))
	if err != nil {
		return fail(err)
	}
	if resp == nil || len(resp.Body) == 0 {
		status := 0
		if resp != nil {
			status = resp.Status
		}
		return fail(errs.Fetch(task.SourceURL, status, errs.ErrEmptyBody))
	}

	path, err := wp.storage.Persist(string(task.Category), task.DisplayName, resp.Body)
	if err != nil {
		return fail(err)
	}

	sum := sha256.Sum256(resp.Body)
	outcome.Success = true
	outcome.Path = path
	outcome.Size = len(resp.Body)
	outcome.SHA256 = hex.EncodeToString(sum[:])
	outcome.Duration = time.Since(start)
	outcome.At = time.Now()

	fields["size"] = outcome.Size
	fields["duration_ms"] = outcome.Duration.Milliseconds()
	wp.logger.DebugWithFields("Feed saved", fields)

	return outcome
}
