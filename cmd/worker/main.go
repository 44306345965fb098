package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/geocoder89/eventform/internal/config"
	"github.com/geocoder89/eventform/internal/db"
	"github.com/geocoder89/eventform/internal/exports"
	"github.com/geocoder89/eventform/internal/message"
	"github.com/geocoder89/eventform/internal/observability"
	"github.com/geocoder89/eventform/internal/queue/redisclient"
	"github.com/geocoder89/eventform/internal/queue/worker"
	"github.com/geocoder89/eventform/internal/repo"
	"github.com/geocoder89/eventform/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName: "eventform-worker",
		Exporter:    cfg.OTelExporter,
		Endpoint:    cfg.OTelEndpoint,
	})
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}
	defer func() {
		sctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = shutdownTracer(sctx)
	}()

	store, err := db.Open(ctx, cfg)
	if err != nil {
		log.Error("store open failed", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}
	defer store.Close()

	if cfg.StoreDriver == config.DriverMemory {
		log.Warn("worker is using the in-memory store; it will not see events created by the api process")
	}

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	events := repo.NewEventsRepo(store, prom)
	registrations := repo.NewRegistrationsRepo(store, prom)

	// a nil *S3 must not end up inside the interface
	var objects exports.ObjectStore
	if cfg.ExportS3Bucket != "" {
		s3, err := storage.NewS3(ctx, storage.S3Config{
			Region:   cfg.ExportS3Region,
			Bucket:   cfg.ExportS3Bucket,
			Endpoint: cfg.ExportS3Endpoint,
		})
		if err != nil {
			log.Error("s3 init failed", "bucket", cfg.ExportS3Bucket, "err", err)
			os.Exit(1)
		}
		objects = storage.NewBreaker(s3, storage.BreakerConfig{})
	}

	exporter := exports.NewExporter(events, registrations, message.Composer{Location: cfg.Location()}, objects)

	rdb, err := redisclient.Open(cfg.RedisURL, redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Name:     "eventform-worker",
	})
	if err != nil {
		log.Error("redis config invalid", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	queue := redisclient.NewJobQueue(rdb, redisclient.DefaultQueueName)

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		PollInterval:  time.Second,
		WorkerID:      workerID,
		Concurrency:   cfg.WorkerConcurrency,
		ShutdownGrace: 10 * time.Second,
	}, queue, exporter, prom, store, queue)

	healthSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WorkerHealthPort),
		Handler:           w.HealthHandler(prometheus.DefaultGatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("worker health server starting", "port", cfg.WorkerHealthPort)
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("worker health server failed", "err", err)
		}
	}()

	log.Info("worker has started", "worker_id", workerID, "concurrency", cfg.WorkerConcurrency)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	sctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()
	_ = healthSrv.Shutdown(sctx)

	log.Info("worker shutdown complete")
}
