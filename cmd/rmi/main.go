package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/maintiq/rmi/internal/adapters/http/api"
	"github.com/maintiq/rmi/internal/adapters/http/swagger"
	"github.com/maintiq/rmi/internal/adapters/narrative"
	"github.com/maintiq/rmi/internal/adapters/repository"
	app "github.com/maintiq/rmi/internal/app"
	"github.com/maintiq/rmi/internal/config"
	"github.com/maintiq/rmi/internal/domain/normalize"
	"github.com/maintiq/rmi/pkg/logger"
	"github.com/maintiq/rmi/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout       = 30 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	metricsInterval   = 5 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Optional .env for local development; absence is not an error.
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	opts := []app.Option{
		app.WithLogger(log),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithRoleWeights(cfg.RoleWeights),
		app.WithEvidenceThreshold(cfg.EvidenceThreshold),
		app.WithBlend(cfg.InterviewWeight, cfg.ObservationWeight),
		app.WithPMGraceDays(cfg.PMGraceDays),
		app.WithTextScorer(buildTextScorer(ctx, cfg, log)),
	}

	// MySQL when a DSN is configured, in-memory otherwise.
	if cfg.MySQLDSN != "" {
		store, serr := repository.NewSQLStore(cfg.MySQLDSN)
		if serr != nil {
			os.Stderr.WriteString("failed to connect to MySQL: " + serr.Error() + "\n")
			return
		}
		if cerr := store.CreateTables(ctx); cerr != nil {
			os.Stderr.WriteString("failed to create tables: " + cerr.Error() + "\n")
			return
		}
		log.Info(ctx, "using MySQL store")
		opts = append(opts, app.WithStore(store))
	}

	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// API docs under /api-docs
	swagger.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// buildTextScorer selects the narrative backend: the HTTP evaluator
// when configured, the keyword heuristic otherwise.
func buildTextScorer(ctx context.Context, cfg *config.Config, log logger.Logger) normalize.TextScorer {
	if cfg.NarrativeURL == "" {
		log.Info(ctx, "no narrative endpoint configured; using keyword scorer")
		return narrative.KeywordScorer{}
	}
	log.Info(ctx, "using narrative evaluation endpoint", logger.String("url", cfg.NarrativeURL))
	return narrative.NewClient(cfg.NarrativeURL,
		narrative.WithAPIKey(cfg.NarrativeAPIKey),
		narrative.WithTimeout(time.Duration(cfg.NarrativeTimeoutSeconds)*time.Second),
	)
}

// startServiceMetricsUpdater refreshes queue and worker gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := svc.GetStats()
			if queueLen, ok := stats["queueLength"].(int); ok {
				metrics.UpdateQueueSize(queueLen)
			}
			if workerCount, ok := stats["workerCount"].(int); ok {
				metrics.UpdateWorkerCount(workerCount)
			}
		}
	}
}
