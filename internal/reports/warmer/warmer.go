// Package warmer refreshes today's live stats in the cache on a schedule so
// dashboard reads rarely pay for a full aggregation.
package warmer

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"taptrail/internal/reports/service"
)

// LiveComputer recomputes today's snapshot and stores it in the cache.
type LiveComputer interface {
	ComputeLive(ctx context.Context) (*service.LiveStats, error)
}

// Warmer drives periodic live-stats recomputation.
type Warmer struct {
	cron   *cron.Cron
	svc    LiveComputer
	logger *slog.Logger
}

// New creates a warmer that recomputes on the given cron schedule
// (e.g. "@every 1m").
func New(svc LiveComputer, schedule string, logger *slog.Logger) (*Warmer, error) {
	w := &Warmer{cron: cron.New(), svc: svc, logger: logger}
	_, err := w.cron.AddFunc(schedule, w.refresh)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Start begins the schedule. The first refresh runs at the first tick, not
// immediately; callers wanting a warm cache at boot can call Refresh once.
func (w *Warmer) Start() {
	w.cron.Start()
	w.logger.Info("stats warmer started")
}

// Stop halts the schedule and waits for a running refresh to finish.
func (w *Warmer) Stop() {
	ctx := w.cron.Stop()
	<-ctx.Done()
	w.logger.Info("stats warmer stopped")
}

// Refresh recomputes today's stats once, outside the schedule.
func (w *Warmer) Refresh(ctx context.Context) {
	if _, err := w.svc.ComputeLive(ctx); err != nil {
		w.logger.Warn("stats warm-up failed", "error", err)
	}
}

func (w *Warmer) refresh() {
	w.Refresh(context.Background())
}
