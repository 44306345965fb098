package worker

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DepthReporter is implemented by queues that can count what is waiting.
type DepthReporter interface {
	Depth(ctx context.Context) (ready, delayed int64, err error)
}

// HealthHandler serves /healthz, /readyz and /stats for the worker process,
// plus /metrics when a gatherer is given.
func (w *Worker) HealthHandler(gatherer ...prometheus.Gatherer) http.Handler {
	r := gin.New()

	r.Use(gin.Recovery())

	// liveness: process is up
	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok", "workerId": w.cfg.WorkerID})
	})

	// readiness: not shutting down and every dependency answers
	r.GET("/readyz", func(c *gin.Context) {
		if !w.isReady() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
		defer cancel()

		for _, d := range w.deps {
			if err := d.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/stats", func(c *gin.Context) {
		out := gin.H{
			"workerId":    w.cfg.WorkerID,
			"concurrency": w.cfg.Concurrency,
			"jobs":        w.metrics.Snapshot(),
		}

		if dr, ok := w.queue.(DepthReporter); ok {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
			defer cancel()

			if ready, delayed, err := dr.Depth(ctx); err == nil {
				out["queue"] = gin.H{"ready": ready, "delayed": delayed}
			}
		}

		c.JSON(http.StatusOK, out)
	})

	if len(gatherer) > 0 {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer[0], promhttp.HandlerOpts{})))
	}

	return r
}
