package realtime

import (
	"context"
	"time"
)

// Backoff is a bounded linear retry policy: attempt n waits n × Base.
type Backoff struct {
	Base        time.Duration
	MaxAttempts int
}

// Delay returns the wait before attempt (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(attempt) * b.Base
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
