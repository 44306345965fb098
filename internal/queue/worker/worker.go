package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/eventform/internal/jobs"
	"github.com/geocoder89/eventform/internal/observability"
)

type Queue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (jobs.Job, error)
	Save(ctx context.Context, j jobs.Job) error
	Schedule(ctx context.Context, j jobs.Job) error
	PromoteDue(ctx context.Context, now time.Time) (int, error)
}

// Handler runs one job and returns its JSON result.
type Handler interface {
	Handle(ctx context.Context, j jobs.Job) (json.RawMessage, error)
}

type ReadinessDeps interface {
	Ping(ctx context.Context) error
}

type Config struct {
	PollInterval  time.Duration
	WorkerID      string
	Concurrency   int
	ShutdownGrace time.Duration
	JobTimeout    time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = 10 * time.Second
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 30 * time.Second
	}
	return c
}

type Worker struct {
	cfg     Config
	queue   Queue
	handler Handler
	deps    []ReadinessDeps

	prom    *observability.Prom
	metrics *observability.JobMetrics

	now     func() time.Time
	backoff func(attempt int) time.Duration

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, q Queue, h Handler, prom *observability.Prom, deps ...ReadinessDeps) *Worker {
	return &Worker{
		cfg:     cfg.withDefaults(),
		queue:   q,
		handler: h,
		deps:    deps,
		prom:    prom,
		metrics: observability.NewJobMetrics(),
		now:     time.Now,
		backoff: ExponentialBackoff,
	}
}

func (w *Worker) Metrics() *observability.JobMetrics { return w.metrics }

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}

func (w *Worker) isReady() bool {
	w.readyMu.RLock()
	defer w.readyMu.RUnlock()
	return w.ready
}

// Run blocks until ctx is cancelled, then gives in-flight jobs up to ShutdownGrace to finish.
func (w *Worker) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			w.loop(ctx, slot)
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.promoteLoop(ctx)
	}()

	w.setReady(true)
	slog.Info("worker started", "worker_id", w.cfg.WorkerID, "concurrency", w.cfg.Concurrency)

	<-ctx.Done()
	w.setReady(false)
	slog.Info("worker received shutdown signal", "worker_id", w.cfg.WorkerID)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(w.cfg.ShutdownGrace):
		return errors.New("shutdown grace period exceeded with jobs still running")
	}
}

func (w *Worker) loop(ctx context.Context, slot int) {
	for ctx.Err() == nil {
		_, err := w.ProcessOne(ctx)
		if err == nil || ctx.Err() != nil {
			continue
		}

		slog.Error("worker step failed", "worker_id", w.cfg.WorkerID, "slot", slot, "err", err)

		// back off a little so a dead redis doesn't spin the loop
		select {
		case <-ctx.Done():
		case <-time.After(w.cfg.PollInterval):
		}
	}
}

func (w *Worker) promoteLoop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.queue.PromoteDue(ctx, w.now())
			if err != nil && ctx.Err() == nil {
				slog.Error("promote delayed jobs failed", "err", err)
				continue
			}
			if n > 0 {
				slog.Debug("promoted delayed jobs", "count", n)
			}
		}
	}
}
