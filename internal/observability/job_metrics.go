package observability

import (
	"sync/atomic"
	"time"
)

// JobMetrics are in-process export counters served on the worker's /stats
// endpoint. Prometheus gets the same outcomes through Prom.ObserveExport;
// these exist so an operator can curl one worker without a scrape setup.
type JobMetrics struct {
	dequeued  atomic.Uint64
	done      atomic.Uint64
	failed    atomic.Uint64
	permanent atomic.Uint64
	retried   atomic.Uint64

	// unix millis, zero until the first outcome
	lastDoneAt   atomic.Int64
	lastFailedAt atomic.Int64

	durationCount atomic.Uint64
	durationTotal atomic.Int64 // ns
	durationMax   atomic.Int64 // ns
}

func NewJobMetrics() *JobMetrics {
	return &JobMetrics{}
}

func (m *JobMetrics) IncDequeued() { m.dequeued.Add(1) }

func (m *JobMetrics) IncRetried() { m.retried.Add(1) }

func (m *JobMetrics) MarkDone(at time.Time) {
	m.done.Add(1)
	m.lastDoneAt.Store(at.UnixMilli())
}

// MarkFailed records a job that will not run again; permanent is true when
// the handler ruled out retries rather than the attempts running out.
func (m *JobMetrics) MarkFailed(at time.Time, permanent bool) {
	m.failed.Add(1)
	if permanent {
		m.permanent.Add(1)
	}
	m.lastFailedAt.Store(at.UnixMilli())
}

func (m *JobMetrics) ObserveDuration(d time.Duration) {
	ns := d.Nanoseconds()
	m.durationCount.Add(1)
	m.durationTotal.Add(ns)

	for {
		curr := m.durationMax.Load()
		if ns <= curr || m.durationMax.CompareAndSwap(curr, ns) {
			return
		}
	}
}

type JobMetricsSnapshot struct {
	Dequeued          uint64        `json:"dequeued"`
	Done              uint64        `json:"done"`
	Failed            uint64        `json:"failed"`
	PermanentFailures uint64        `json:"permanentFailures"`
	Retried           uint64        `json:"retried"`
	LastDoneAt        *time.Time    `json:"lastDoneAt,omitempty"`
	LastFailedAt      *time.Time    `json:"lastFailedAt,omitempty"`
	DurationCount     uint64        `json:"durationCount"`
	AverageDuration   time.Duration `json:"averageDurationNs"`
	MaxDuration       time.Duration `json:"maxDurationNs"`
}

func (m *JobMetrics) Snapshot() JobMetricsSnapshot {
	count := m.durationCount.Load()

	var avg time.Duration
	if count > 0 {
		avg = time.Duration(m.durationTotal.Load() / int64(count))
	}

	return JobMetricsSnapshot{
		Dequeued:          m.dequeued.Load(),
		Done:              m.done.Load(),
		Failed:            m.failed.Load(),
		PermanentFailures: m.permanent.Load(),
		Retried:           m.retried.Load(),
		LastDoneAt:        millisOrNil(m.lastDoneAt.Load()),
		LastFailedAt:      millisOrNil(m.lastFailedAt.Load()),
		DurationCount:     count,
		AverageDuration:   avg,
		MaxDuration:       time.Duration(m.durationMax.Load()),
	}
}

func millisOrNil(ms int64) *time.Time {
	if ms == 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}
