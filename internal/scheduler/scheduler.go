package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/filedepot/filedepot/internal/service"
)

type Scheduler struct {
	sweepService *service.SweepService
	interval     time.Duration
}

func New(sweepService *service.SweepService, interval time.Duration) *Scheduler {
	return &Scheduler{
		sweepService: sweepService,
		interval:     interval,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("scheduler started", slog.Duration("interval", s.interval))
	go s.runSweepJob(ctx)
}

func (s *Scheduler) runSweepJob(ctx context.Context) {
	s.executeSweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.executeSweep(ctx)
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return
		}
	}
}

func (s *Scheduler) executeSweep(ctx context.Context) {
	swept, err := s.sweepService.SweepExpiredSessions(ctx)
	if err != nil {
		slog.Error("sweep job failed", slog.String("error", err.Error()))
		return
	}

	if swept > 0 {
		slog.Info("sweep job completed", slog.Int("expired_sessions", swept))
	}
}
