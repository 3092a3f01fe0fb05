package auth

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"
)

// TimingConfig holds configuration for login failure padding
type TimingConfig struct {
	BaseDelayMs    int  // Base delay in milliseconds
	RandomDelayMs  int  // Random jitter range in milliseconds
	DelayOnSuccess bool // Pad successful logins too
}

// TimingDelay pads authentication failures to a common minimum duration so
// that an unknown username and a wrong password take about the same time.
// A nil *TimingDelay never waits.
type TimingDelay struct {
	config TimingConfig
}

func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{config: config}
}

// target returns base delay plus crypto/rand jitter.
func (td *TimingDelay) target() time.Duration {
	delay := time.Duration(td.config.BaseDelayMs) * time.Millisecond
	if td.config.RandomDelayMs > 0 {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(td.config.RandomDelayMs)))
		if err == nil {
			delay += time.Duration(n.Int64()) * time.Millisecond
		}
	}
	return delay
}

// WaitFrom sleeps until at least the target delay has elapsed since start,
// returning early if ctx is cancelled.
func (td *TimingDelay) WaitFrom(ctx context.Context, start time.Time, success bool) {
	if td == nil || (success && !td.config.DelayOnSuccess) {
		return
	}

	remaining := td.target() - time.Since(start)
	if remaining <= 0 {
		return
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
