// Package worker runs slow side effects, such as journal writes for raised
// alerts, on a small fixed set of goroutines fed by a bounded queue.
package worker

import (
	"context"
	"log/slog"
	"sync"
)

// Job is one unit of queued work, e.g. a models.AlertEvent to persist.
type Job interface{}

// ProcessFunc handles a single job. A returned error is logged and the job
// is not retried.
type ProcessFunc func(ctx context.Context, job Job) error

// WorkerPool drains a bounded queue with numWorkers goroutines. The queue
// size caps how many alert events may wait for the database at once.
type WorkerPool struct {
	name       string
	numWorkers int
	jobs       chan Job
	processor  ProcessFunc
	wg         sync.WaitGroup
}

// NewWorkerPool names the pool for logs. At least one worker is always run.
func NewWorkerPool(name string, numWorkers int, bufferSize int, processor ProcessFunc) *WorkerPool {
	return &WorkerPool{
		name:       name,
		numWorkers: max(numWorkers, 1),
		jobs:       make(chan Job, bufferSize),
		processor:  processor,
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	wp.wg.Add(wp.numWorkers)
	for id := 1; id <= wp.numWorkers; id++ {
		go wp.worker(ctx, id)
	}
	slog.Debug("worker pool started", "pool", wp.name, "workers", wp.numWorkers, "queue", cap(wp.jobs))
}

// worker exits when ctx is cancelled or the queue is closed and empty.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	for {
		var (
			job Job
			ok  bool
		)
		select {
		case <-ctx.Done():
			return
		case job, ok = <-wp.jobs:
		}
		if !ok {
			return
		}
		if err := wp.processor(ctx, job); err != nil {
			slog.Warn("job failed", "pool", wp.name, "worker", id, "error", err)
		}
	}
}

// Submit blocks until the queue has room. Callers on a latency-sensitive path
// should use TrySubmit.
func (wp *WorkerPool) Submit(job Job) {
	wp.jobs <- job
}

// TrySubmit never blocks. It reports false when the queue is full, leaving the
// caller to decide whether the job may be dropped.
func (wp *WorkerPool) TrySubmit(job Job) bool {
	select {
	case wp.jobs <- job:
		return true
	default:
		return false
	}
}

// Stop closes the queue and waits for workers to finish what was already
// queued. No Submit may follow Stop.
func (wp *WorkerPool) Stop() {
	close(wp.jobs)
	wp.wg.Wait()
	slog.Debug("worker pool stopped", "pool", wp.name)
}
