package validation

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-backoffice/internal/pkg/logger"
	"go.uber.org/zap"
)

// Scheduler runs a validation pass on start and then every interval. A
// failed pass is logged and retried at the next tick.
type Scheduler struct {
	uc       UseCase
	interval time.Duration
	logger   logger.ZapLogger
}

func NewScheduler(uc UseCase, interval time.Duration, log logger.ZapLogger) *Scheduler {
	return &Scheduler{uc: uc, interval: interval, logger: log}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting validation scheduler", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if _, err := s.uc.RunAll(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("Validation pass failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping validation scheduler")
			return
		case <-ticker.C:
		}
	}
}
