package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/geocoder89/eventform/internal/jobs"
)

// ProcessOne takes at most one job off the queue and runs it to a recorded outcome.
// The bool reports whether a job was taken.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	j, err := w.queue.Dequeue(ctx, w.cfg.PollInterval)
	if err != nil {
		if errors.Is(err, jobs.ErrNoJob) {
			return false, nil
		}
		return false, err
	}

	w.metrics.IncDequeued()

	// a redelivered job that already finished
	if j.Status.IsTerminal() {
		return true, nil
	}

	log := slog.With("job_id", j.ID, "job_type", string(j.Type), "worker_id", w.cfg.WorkerID)

	// status writes must land even while shutting down
	storeCtx := context.WithoutCancel(ctx)

	j.Start(w.now())
	if err := w.save(storeCtx, j); err != nil {
		return true, err
	}

	if w.prom != nil {
		w.prom.ExportsInFlight.Inc()
	}

	execCtx, cancel := context.WithTimeout(storeCtx, w.cfg.JobTimeout)
	start := time.Now()
	result, err := w.handler.Handle(execCtx, j)
	cancel()
	dur := time.Since(start)

	if w.prom != nil {
		w.prom.ExportsInFlight.Dec()
	}
	w.metrics.ObserveDuration(dur)

	if err != nil {
		return true, w.handleFailure(storeCtx, log, j, err, dur)
	}

	j.Succeed(result, w.now())
	w.metrics.MarkDone(j.UpdatedAt)
	w.prom.ObserveExport("succeeded", dur)
	log.Info("job succeeded", "attempt", j.Attempts, "duration_ms", dur.Milliseconds())

	return true, w.save(storeCtx, j)
}

func (w *Worker) handleFailure(ctx context.Context, log *slog.Logger, j jobs.Job, jobErr error, dur time.Duration) error {
	permanent := errors.Is(jobErr, jobs.ErrPermanent)

	if j.Fail(jobErr, w.now(), w.backoff(j.Attempts-1), permanent) {
		w.metrics.IncRetried()
		w.prom.ObserveExport("retried", dur)
		log.Warn("job failed, retry scheduled", "attempt", j.Attempts, "run_at", j.RunAt, "err", jobErr)

		saveCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return w.queue.Schedule(saveCtx, j)
	}

	w.metrics.MarkFailed(j.UpdatedAt, permanent)
	w.prom.ObserveExport("failed", dur)
	log.Error("job failed permanently", "attempt", j.Attempts, "err", jobErr)

	return w.save(ctx, j)
}

func (w *Worker) save(ctx context.Context, j jobs.Job) error {
	saveCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return w.queue.Save(saveCtx, j)
}
