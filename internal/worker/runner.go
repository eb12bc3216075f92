// Package worker contains the background delivery pipeline that renders a
// report when needed, merges it, and sends it by email. It is intentionally
// decoupled from the HTTP layer: the api package holds a worker.Enqueuer
// interface and calls Enqueue — it never imports the concrete Runner or Job
// types.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ─── ENQUEUER INTERFACE ───────────────────────────────────────────────────────

// Enqueuer is the narrow interface the api package uses to hand off a send.
// The concrete implementation is *Runner. In tests, any struct with an
// Enqueue method satisfies the interface.
type Enqueuer interface {
	Enqueue(ctx context.Context, job SendJob) (uuid.UUID, error)
}

// ─── RUNNER ───────────────────────────────────────────────────────────────────

// RunnerConfig holds tuning parameters for the Runner. Zero values fall back
// to DefaultRunnerConfig().
type RunnerConfig struct {
	// Workers is the number of concurrent delivery goroutines. Each one can
	// drive a full render, so this also bounds concurrent browser load from
	// the background path. Default: 2.
	Workers int

	// JobTimeout is the per-delivery context deadline, covering render,
	// merge, and the provider call. Default: 3 minutes.
	JobTimeout time.Duration
}

// DefaultRunnerConfig returns safe production defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Workers:    2,
		JobTimeout: 3 * time.Minute,
	}
}

// Runner manages the pool of delivery goroutines fed by an in-process
// channel. Deliveries get exactly one attempt; the outcome lands in the
// status store where the client can poll it.
type Runner struct {
	job      *Job
	statuses *StatusStore
	cfg      RunnerConfig
	logger   *slog.Logger

	queue chan SendJob
	wg    sync.WaitGroup
}

// NewRunner constructs a Runner. Call Start() to begin processing.
func NewRunner(job *Job, statuses *StatusStore, cfg RunnerConfig, logger *slog.Logger) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultRunnerConfig().Workers
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultRunnerConfig().JobTimeout
	}

	return &Runner{
		job:      job,
		statuses: statuses,
		cfg:      cfg,
		logger:   logger,
		// Generous buffer: the HTTP handler answers before the work runs, so
		// Enqueue must not block. A full queue is load shedding, not backlog.
		queue: make(chan SendJob, cfg.Workers*8),
	}
}

// Enqueue registers the job in the status store and pushes it onto the
// channel. It satisfies the Enqueuer interface. A full queue returns an
// error rather than blocking the HTTP response.
func (r *Runner) Enqueue(_ context.Context, job SendJob) (uuid.UUID, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}

	recipient := ""
	if len(job.To) > 0 {
		recipient = job.To[0]
	}
	r.statuses.put(Status{
		ID:         job.ID,
		State:      StateQueued,
		Recipient:  recipient,
		EnqueuedAt: time.Now(),
	})

	select {
	case r.queue <- job:
		r.logger.Info("worker: enqueued delivery", "delivery_id", job.ID, "to", recipient)
		return job.ID, nil
	default:
		r.statuses.transition(job.ID, StateFailed, "delivery queue is full")
		return job.ID, errors.New("worker: delivery queue is full")
	}
}

// Start launches the worker pool. It blocks until ctx is cancelled. Call it
// in a goroutine from main:
//
//	go runner.Start(ctx)
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info("worker: starting", "workers", r.cfg.Workers, "job_timeout", r.cfg.JobTimeout)

	for i := range r.cfg.Workers {
		r.wg.Add(1)
		go r.work(ctx, i)
	}

	r.wg.Wait()
	r.logger.Info("worker: stopped")
}

// work is the inner loop for each worker goroutine.
func (r *Runner) work(ctx context.Context, id int) {
	defer r.wg.Done()
	log := r.logger.With("worker_id", id)
	log.Info("worker: goroutine started")

	for {
		select {
		case <-ctx.Done():
			log.Info("worker: goroutine stopping")
			return
		case job := <-r.queue:
			r.run(ctx, job, log)
		}
	}
}

// run executes one delivery with the configured timeout and records the
// outcome. One attempt only — a failure is terminal and visible via the
// status store.
func (r *Runner) run(ctx context.Context, job SendJob, log *slog.Logger) {
	r.statuses.transition(job.ID, StateProcessing, "")

	jobCtx, cancel := context.WithTimeout(ctx, r.cfg.JobTimeout)
	receipt, err := r.job.Run(jobCtx, job)
	cancel()

	if err != nil {
		log.Error("worker: delivery failed", "delivery_id", job.ID, "error", err)
		r.statuses.transition(job.ID, StateFailed, err.Error())
		return
	}

	log.Info("worker: delivery completed",
		"delivery_id", job.ID,
		"attachment", receipt.Attachment,
	)
	r.statuses.transition(job.ID, StateSent, "")
}
