package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/eventform/internal/cache"
	"github.com/geocoder89/eventform/internal/config"
	"github.com/geocoder89/eventform/internal/db"
	"github.com/geocoder89/eventform/internal/exports"
	"github.com/geocoder89/eventform/internal/fieldset"
	httpx "github.com/geocoder89/eventform/internal/http"
	"github.com/geocoder89/eventform/internal/http/handlers"
	"github.com/geocoder89/eventform/internal/observability"
	"github.com/geocoder89/eventform/internal/queue/redisclient"
	"github.com/geocoder89/eventform/internal/repo"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	shutdownTracer, err := observability.InitTracer(context.Background(), observability.TracerConfig{
		ServiceName: "eventform-api",
		Exporter:    cfg.OTelExporter,
		Endpoint:    cfg.OTelEndpoint,
	})
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	openCtx, cancelOpen := config.WithTimeout(10 * time.Second)
	store, err := db.Open(openCtx, cfg)
	cancelOpen()
	if err != nil {
		log.Error("store open failed", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}

	events := repo.NewEventsRepo(store, prom)
	registrations := repo.NewRegistrationsRepo(store, prom)

	ready := map[string]handlers.Pinger{"store": store}

	deps := httpx.Deps{
		Config:        cfg,
		Events:        events,
		Registrations: registrations,
		Drafts:        fieldset.NewDrafts(events),
		Cache:         cache.New(cfg.EventsCacheTTL),
		Prom:          prom,
		Gatherer:      prometheus.DefaultGatherer,
		Ready:         ready,
	}

	// exports are only offered when a queue is configured
	var rdb *redisclient.Client
	if cfg.RedisURL != "" || cfg.RedisAddr != "" {
		rdb, err = redisclient.Open(cfg.RedisURL, redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Name:     "eventform-api",
		})
		if err != nil {
			log.Error("redis config invalid", "err", err)
			os.Exit(1)
		}
		queue := redisclient.NewJobQueue(rdb, redisclient.DefaultQueueName)
		deps.Exports = exports.NewService(events, queue)
		ready["redis"] = queue
	}

	router := httpx.NewRouter(deps)

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver)
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
		if err := shutdownTracer(ctx); err != nil {
			log.Warn("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}

	if rdb != nil {
		_ = rdb.Close()
	}
	if err := store.Close(); err != nil {
		log.Warn("store close failed", "err", err)
	}
}
