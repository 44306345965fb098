package observability

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/geocoder89/eventform/internal/docstore"
	"github.com/jackc/pgx/v5/pgconn"
)

// ObserveStore times one logical store op. A missing document is an answer, not a failure.
func (p *Prom) ObserveStore(op string, fn func() error) error {
	start := time.Now()
	err := fn()

	if p == nil {
		return err
	}

	status := "ok"

	switch {
	case err == nil:
	case errors.Is(err, docstore.ErrNotFound):
		status = "not_found"
	default:
		status = "error"
		p.StoreErrorsTotal.WithLabelValues(op, classifyStoreErr(err)).Inc()
	}
	p.StoreOpDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
	return err
}

func classifyStoreErr(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return "unique_violation"
		case "40001":
			return "serialization_failure"
		case "40P01":
			return "deadlock"
		case "57014":
			return "query_canceled"
		default:
			return "pg_" + pgErr.Code
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return "timeout"
	case strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy"):
		return "locked"
	case strings.Contains(msg, "connection") || strings.Contains(msg, "websocket"):
		return "connection"
	case strings.Contains(msg, "surreal"):
		return "query"
	default:
		return "unknown"
	}
}
