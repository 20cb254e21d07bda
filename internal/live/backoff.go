package live

import "time"

const (
	baseReconnectDelay = 1 * time.Second
	maxReconnectDelay  = 60 * time.Second
)

// reconnectDelay returns base * 2^attempt, capped at max. Negative attempts
// yield base.
func reconnectDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt <= 0 {
		return base
	}
	// 2^30 seconds is far beyond any sane cap.
	if attempt > 30 {
		return max
	}
	if d := base * time.Duration(1<<attempt); d < max {
		return d
	}
	return max
}
