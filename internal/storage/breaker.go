package storage

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("object store circuit breaker open")

type Putter interface {
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}

type BreakerConfig struct {
	Timeout          time.Duration // hard timeout per upload
	FailureThreshold int           // consecutive failures to open the circuit
	Cooldown         time.Duration // how long to stay open before half-open
	HalfOpenMaxCalls int           // trial uploads allowed while half-open
}

type breakerState string

const (
	stateClosed   breakerState = "closed"
	stateOpen     breakerState = "open"
	stateHalfOpen breakerState = "half_open"
)

// Breaker fails uploads fast once the object store keeps erroring, so export
// jobs back off through the queue instead of each waiting out a dead endpoint.
type Breaker struct {
	inner Putter
	cfg   BreakerConfig
	now   func() time.Time

	mu                  sync.Mutex
	state               breakerState
	consecutiveFailures int
	openedAt            time.Time
	halfOpenInFlight    int
}

func NewBreaker(inner Putter, cfg BreakerConfig) *Breaker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}

	return &Breaker{
		inner: inner,
		cfg:   cfg,
		now:   time.Now,
		state: stateClosed,
	}
}

func (b *Breaker) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	if !b.allowRequest() {
		return "", ErrCircuitOpen
	}

	putCtx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	url, err := b.inner.Put(putCtx, key, contentType, body)

	b.afterRequest(err)

	return url, err
}

// State reports the current circuit state.
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.state)
}

func (b *Breaker) allowRequest() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateOpen:
		if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
			return false
		}
		b.setState(stateHalfOpen)
		b.halfOpenInFlight = 0
		fallthrough

	case stateHalfOpen:
		if b.halfOpenInFlight >= b.cfg.HalfOpenMaxCalls {
			return false
		}
		b.halfOpenInFlight++
		return true

	default:
		return true
	}
}

func (b *Breaker) afterRequest(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateHalfOpen && b.halfOpenInFlight > 0 {
		b.halfOpenInFlight--
	}

	if err == nil {
		b.consecutiveFailures = 0
		b.setState(stateClosed)
		return
	}

	b.consecutiveFailures++

	// a failed trial reopens immediately
	if b.state == stateHalfOpen || b.consecutiveFailures >= b.cfg.FailureThreshold {
		b.openedAt = b.now()
		b.setState(stateOpen)
	}
}

// callers hold mu
func (b *Breaker) setState(s breakerState) {
	if b.state == s {
		return
	}
	slog.Warn("object store circuit state changed", "from", b.state, "to", s, "failures", b.consecutiveFailures)
	b.state = s
}
