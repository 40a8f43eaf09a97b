package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vncsmyrnk/accounts/internal/core/ports"
	"github.com/vncsmyrnk/accounts/internal/metrics"
)

type SweeperConfig struct {
	Interval time.Duration
	// Timeout bounds a single sweep.
	Timeout time.Duration
	Now     func() time.Time
}

// RevocationSweeper deletes revocation records whose token has expired.
type RevocationSweeper struct {
	revocationRepo ports.RevocationRepository
	logger         *zap.Logger
	config         SweeperConfig
}

func NewRevocationSweeper(revocationRepo ports.RevocationRepository, logger *zap.Logger, config SweeperConfig) *RevocationSweeper {
	if config.Now == nil {
		config.Now = time.Now
	}
	return &RevocationSweeper{
		revocationRepo: revocationRepo,
		logger:         logger,
		config:         config,
	}
}

func (s *RevocationSweeper) Sweep(ctx context.Context) (int64, error) {
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	n, err := s.revocationRepo.PurgeExpired(ctx, s.config.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge revoked tokens: %w", err)
	}
	metrics.RevokedTokensPurgedTotal.Add(float64(n))
	return n, nil
}

// Run sweeps once per interval until ctx is done. Sweeps run on this goroutine,
// so a slow sweep delays the next tick instead of overlapping it. Failures are
// logged and retried on the next tick.
func (s *RevocationSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.logger.Info("revocation sweeper started", zap.Duration("interval", s.config.Interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("revocation sweeper stopped")
			return nil
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *RevocationSweeper) runOnce(ctx context.Context) {
	start := time.Now()
	n, err := s.Sweep(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.SweepFailuresTotal.Inc()
		s.logger.Error("revocation sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("revocation sweep finished", zap.Int64("purged", n), zap.Duration("took", time.Since(start)))
}
