// Package scheduler refreshes the daily brief on a cron schedule so the
// cache stays warm and readers rarely wait on a live generation.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// refreshTimeout bounds one scheduled refresh, chain included.
const refreshTimeout = 2 * time.Minute

// RefreshFunc regenerates the brief. It is the insight service's Refresh.
type RefreshFunc func(ctx context.Context) error

// Scheduler runs periodic brief refreshes.
type Scheduler struct {
	cron    *cron.Cron
	refresh RefreshFunc
	spec    string
}

// New creates a scheduler that invokes refresh on the given cron spec.
// Specs accept the standard five-field form plus descriptors like
// "@every 30m".
func New(spec string, refresh RefreshFunc) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(),
		refresh: refresh,
		spec:    spec,
	}

	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return nil, fmt.Errorf("scheduler: invalid refresh spec %q: %w", spec, err)
	}

	return s, nil
}

// Start begins scheduling. It does not block.
func (s *Scheduler) Start() {
	slog.Info("scheduler started", "spec", s.spec)
	s.cron.Start()
}

// Stop halts scheduling and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("scheduler stopped")
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	start := time.Now()
	if err := s.refresh(ctx); err != nil {
		slog.Warn("scheduled brief refresh failed", "error", err)
		return
	}
	slog.Info("scheduled brief refresh completed", "duration_ms", time.Since(start).Milliseconds())
}
