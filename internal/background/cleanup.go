package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// defaultCleanupInterval applies when no positive interval is configured
const defaultCleanupInterval = time.Hour

// RefreshTokenSweeper clears refresh tokens whose expiry has passed
type RefreshTokenSweeper interface {
	CleanupExpiredRefreshTokens(ctx context.Context) (int64, error)
}

// CleanupManager periodically clears expired refresh tokens from auth records
type CleanupManager struct {
	sweeper  RefreshTokenSweeper
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewCleanupManager(sweeper RefreshTokenSweeper, logger *slog.Logger, interval time.Duration) *CleanupManager {
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	return &CleanupManager{
		sweeper:  sweeper,
		logger:   logger,
		interval: interval,
		timeout:  30 * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// Start runs one sweep immediately and then one per interval until ctx is
// cancelled or Stop is called. It blocks; run it in its own goroutine.
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, cm.timeout)
	defer cancel()

	cleared, err := cm.sweeper.CleanupExpiredRefreshTokens(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to clear expired refresh tokens", slog.Any("error", err))
		return
	}

	if cleared > 0 {
		cm.logger.Info("expired refresh tokens cleared", slog.Int64("rows", cleared))
	}
}

// Stop signals Start to return. Safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
