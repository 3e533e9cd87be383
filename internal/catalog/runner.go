package catalog

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Runner polls the catalog for queued adaptation jobs and executes them one
// at a time. Encodes are CPU-bound; a single worker keeps the machine usable
// while the agent churns through a batch.
type Runner struct {
	service      *Service
	repo         Repository
	logger       *slog.Logger
	pollInterval time.Duration
	running      atomic.Bool
	paused       atomic.Bool
}

func NewRunner(service *Service, repo Repository, logger *slog.Logger) *Runner {
	return &Runner{
		service:      service,
		repo:         repo,
		logger:       logger,
		pollInterval: 5 * time.Second,
	}
}

func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}

	r.logger.Info("adaptation runner started")

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("adaptation runner stopping")
			r.running.Store(false)
			return
		case <-ticker.C:
			if !r.paused.Load() {
				r.processNextJob(ctx)
			}
		}
	}
}

func (r *Runner) Pause() {
	r.paused.Store(true)
	r.logger.Info("adaptation runner paused")
}

func (r *Runner) Resume() {
	r.paused.Store(false)
	r.logger.Info("adaptation runner resumed")
}

func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

func (r *Runner) processNextJob(ctx context.Context) {
	jobs, err := r.repo.ListQueuedJobs(ctx)
	if err != nil {
		r.logger.Error("could not list queued jobs", "error", err)
		return
	}
	if len(jobs) == 0 {
		return
	}

	job := jobs[0]
	r.logger.Info("processing adaptation", "job_id", job.ID, "asset_id", job.AssetID)

	if err := r.service.ExecuteAdaptation(ctx, job.ID); err != nil {
		r.logger.Error("adaptation failed", "job_id", job.ID, "error", err)
	}
}
