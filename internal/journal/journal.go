// Package journal records alert activations to the repository off the tracker's
// hot path, using a worker pool.
package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mr1hm/road-hazard-alerts/internal/config"
	"github.com/mr1hm/road-hazard-alerts/internal/models"
	"github.com/mr1hm/road-hazard-alerts/internal/observability"
	"github.com/mr1hm/road-hazard-alerts/internal/repository"
	"github.com/mr1hm/road-hazard-alerts/internal/worker"
)

type Journal struct {
	cfg     config.WorkerConfig
	repo    repository.AlertRepository
	metrics *observability.Metrics
	pool    *worker.WorkerPool

	mu      sync.RWMutex
	started bool
}

func New(cfg config.WorkerConfig, repo repository.AlertRepository, metrics *observability.Metrics) *Journal {
	return &Journal{
		cfg:     cfg,
		repo:    repo,
		metrics: metrics,
	}
}

func (j *Journal) Start(ctx context.Context) {
	processor := func(ctx context.Context, job worker.Job) error {
		event, ok := job.(models.AlertEvent)
		if !ok {
			return fmt.Errorf("unexpected job type %T", job)
		}

		existing, err := j.repo.GetAlert(ctx, event.ID)
		if err != nil {
			slog.Error("error checking existence", "id", event.ID, "error", err)
			return err
		}
		if existing != nil {
			return nil
		}

		if err := j.repo.AddAlert(ctx, &event); err != nil {
			slog.Error("error adding alert event", "id", event.ID, "error", err)
			return err
		}

		slog.Info("recorded alert", "id", event.ID, "hazard_id", event.HazardID, "severity", event.Severity.String())
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.pool = worker.NewWorkerPool("journal", j.cfg.Count, j.cfg.BufferSize, processor)
	j.pool.Start(ctx)
	j.started = true
}

// Record queues an event without blocking. Events are dropped when the queue is
// full or the journal is not running.
func (j *Journal) Record(event models.AlertEvent) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if !j.started || !j.pool.TrySubmit(event) {
		slog.Warn("alert event dropped", "id", event.ID)
		if j.metrics != nil {
			j.metrics.JournalDropped.Inc()
		}
	}
}

func (j *Journal) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.started {
		return
	}
	j.started = false
	j.pool.Stop()
	slog.Info("alert journal stopped")
}
