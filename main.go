package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spgsite/cms-api/auth"
	"github.com/spgsite/cms-api/config"
	"github.com/spgsite/cms-api/handlers"
	"github.com/spgsite/cms-api/jobs"
	"github.com/spgsite/cms-api/metrics"
	"github.com/spgsite/cms-api/storage"
	"github.com/spgsite/cms-api/store"

	"github.com/Noah-Huppert/golog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// shutdownTimeout bounds how long in flight requests may take once a
// shutdown was requested
const shutdownTimeout = 10 * time.Second

func main() {
	// {{{1 Context
	ctx, ctxCancel := context.WithCancel(context.Background())

	// signals holds signals received by process
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-signals

		ctxCancel()
	}()

	// {{{1 Logger
	logger := golog.NewStdLogger("cms-api")

	// {{{1 Configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("failed to load configuration: %s", err.Error())
	}

	cfgStr, err := cfg.String()
	if err != nil {
		logger.Fatalf("failed to convert configuration to string: %s", err.Error())
	}
	logger.Debugf("loaded configuration: %s", cfgStr)

	// {{{1 Store
	dataStore, err := store.Open(ctx, cfg)
	if err != nil {
		logger.Fatalf("failed to connect to %s store: %s", cfg.StoreDriver, err.Error())
	}

	// {{{1 Bucket
	bucket, err := storage.NewLocalBucket(cfg.StorageDir, cfg.StorageBucket, cfg.PublicURL,
		cfg.AllowedImageTypes)
	if err != nil {
		logger.Fatalf("failed to open storage bucket: %s", err.Error())
	}

	// {{{1 Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metricsRecorder := metrics.NewMetrics(registry)

	// {{{1 Job runner
	jobRunner := &jobs.JobRunner{
		Ctx:     ctx,
		Logger:  logger.GetChild("jobs"),
		Cfg:     cfg,
		Metrics: metricsRecorder,
		Store:   dataStore,
		Bucket:  bucket,
	}
	jobRunner.Init()

	jobRunnerDone := make(chan struct{})
	go func() {
		jobRunner.Run()
		close(jobRunnerDone)
	}()

	jobRunner.Every(cfg.SessionCleanupInterval, jobs.JobTypeCleanupSessions)
	jobRunner.Every(cfg.OrphanCleanupInterval, jobs.JobTypeCleanupOrphans)

	// {{{1 Router
	baseHandler := handlers.BaseHandler{
		Ctx:     ctx,
		Logger:  logger.GetChild("handlers"),
		Cfg:     cfg,
		Store:   dataStore,
		Bucket:  bucket,
		Auth:    auth.NewAuthenticator(dataStore, cfg, logger.GetChild("auth")),
		Metrics: metricsRecorder,
		Jobs:    jobRunner,
	}

	// {{{1 Start HTTP server
	server := http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handlers.NewServerHandler(baseHandler, registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("failed to serve: %s", err.Error())
		}
	}()

	logger.Infof("started server on %s", cfg.HTTPAddr)

	<-ctx.Done()

	// {{{1 Shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("failed to shutdown server: %s", err.Error())
	}

	<-jobRunnerDone

	if err := dataStore.Close(shutdownCtx); err != nil {
		logger.Errorf("failed to close store: %s", err.Error())
	}

	logger.Info("done")
}
