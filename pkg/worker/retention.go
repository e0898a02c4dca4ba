package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/event-api/internal/repository"
	"github.com/jwalitptl/event-api/pkg/logger"
	"github.com/jwalitptl/event-api/pkg/metrics"
)

// RetentionWorker removes dispatch records older than the retention window.
type RetentionWorker struct {
	repo            repository.DispatchRepository
	retentionDays   int
	cleanupInterval time.Duration
	logger          *logger.Logger
	metrics         *metrics.Metrics
}

func NewRetentionWorker(repo repository.DispatchRepository, retentionDays int, cleanupInterval time.Duration, l *logger.Logger, m *metrics.Metrics) *RetentionWorker {
	return &RetentionWorker{
		repo:            repo,
		retentionDays:   retentionDays,
		cleanupInterval: cleanupInterval,
		logger:          l,
		metrics:         m,
	}
}

func (w *RetentionWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cleanupInterval)
	defer ticker.Stop()

	w.logger.ZL.Info().
		Int("retention_days", w.retentionDays).
		Dur("interval", w.cleanupInterval).
		Msg("retention worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.ZL.Info().Msg("retention worker shutting down")
			return
		case <-ticker.C:
			if err := w.cleanup(ctx); err != nil {
				w.metrics.CleanupErrors.Inc()
				w.logger.ZL.Error().Err(err).Msg("dispatch record cleanup failed")
			}
		}
	}
}

func (w *RetentionWorker) cleanup(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -w.retentionDays)

	rows, err := w.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup dispatch records: %w", err)
	}

	w.metrics.RecordsCleaned.Add(float64(rows))
	w.logger.ZL.Info().
		Int64("rows", rows).
		Time("cutoff", cutoff).
		Msg("dispatch records cleaned up")
	return nil
}
