package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/staffdesk/internal/domain"
	"github.com/yourorg/staffdesk/internal/observability/metrics"
	"github.com/yourorg/staffdesk/pkg/cache"
)

// StatsWorker periodically refreshes the record-count gauge and sweeps
// expired dashboard cache entries.
type StatsWorker struct {
	employeeRepo   domain.EmployeeRepository
	dashboardCache *cache.Cache
	logger         *slog.Logger
	interval       time.Duration
}

// NewStatsWorker creates a new stats worker
func NewStatsWorker(
	employeeRepo domain.EmployeeRepository,
	dashboardCache *cache.Cache,
	logger *slog.Logger,
	interval time.Duration,
) *StatsWorker {
	return &StatsWorker{
		employeeRepo:   employeeRepo,
		dashboardCache: dashboardCache,
		logger:         logger,
		interval:       interval,
	}
}

// Start begins the worker loop. It runs one pass immediately so the gauge
// is populated right after boot, then ticks until the context is cancelled.
func (w *StatsWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("stats worker started", slog.Duration("interval", w.interval))
	w.runOnce()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stats worker stopped")
			return
		case <-ticker.C:
			w.runOnce()
		}
	}
}

func (w *StatsWorker) runOnce() {
	count, err := w.employeeRepo.CountAll()
	if err != nil {
		w.logger.Error("failed to count employee records", slog.String("error", err.Error()))
	} else {
		metrics.SetEmployeeRecords(count)
	}

	if w.dashboardCache != nil {
		if removed := w.dashboardCache.Sweep(); removed > 0 {
			w.logger.Debug("swept dashboard cache", slog.Int("removed", removed))
		}
	}
}
