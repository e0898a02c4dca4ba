package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/event-api/internal/config"
	"github.com/jwalitptl/event-api/internal/repository/postgres"
	"github.com/jwalitptl/event-api/pkg/logger"
	"github.com/jwalitptl/event-api/pkg/metrics"
	"github.com/jwalitptl/event-api/pkg/worker"
)

func setupHealthCheck(appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			appLogger.ZL.Error().Err(err).Msg("health check server failed")
			os.Exit(1)
		}
	}()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLogger.ZL.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	base := postgres.NewBaseRepository(db)
	dispatchRepo := postgres.NewDispatchRepository(base)

	retention := worker.NewRetentionWorker(
		dispatchRepo,
		cfg.Dispatch.RetentionDays,
		cfg.Dispatch.CleanupEvery,
		appLogger,
		metrics.NewMetrics("eventapi_worker", prometheus.DefaultRegisterer),
	)

	setupHealthCheck(appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		appLogger.ZL.Info().Msg("shutting down...")
		cancel()
	}()

	retention.Start(ctx)
}
