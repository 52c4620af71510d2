package otp

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper drops records whose retention window has passed.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// RunJanitor sweeps every interval until ctx is cancelled.
func RunJanitor(ctx context.Context, interval time.Duration, logger *slog.Logger, s Sweeper) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				logger.Warn("otp.sweep failed", slog.Any("error", err))
				continue
			}
			if n > 0 {
				logger.Debug("otp.sweep", slog.Int("removed", n))
			}
		}
	}
}
