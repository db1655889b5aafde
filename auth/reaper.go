package auth

import (
	"context"
	"time"

	"github.com/labstack/gommon/log"
)

const DefaultReapInterval = time.Minute

// RunReaper calls r.ReapExpired every interval until ctx is done. Stores
// with native expiry (Redis) do not need it.
func RunReaper(ctx context.Context, r Reaper, clock Clock, interval time.Duration, logger *log.Logger) {
	if r == nil {
		return
	}
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	if clock == nil {
		clock = SystemClock
	}
	if logger == nil {
		logger = NewLogger("auth")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := r.ReapExpired(ctx, clock.Now())
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warnj(log.JSON{"op": "reap", "error": err.Error()})
				continue
			}
			if removed > 0 {
				logger.Debugj(log.JSON{"op": "reap", "removed": removed})
			}
		}
	}
}
