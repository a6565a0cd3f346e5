package outbox

import (
	"math/rand"
	"time"
)

// backoff doubles base per failed attempt, capped at maxBackoff.
func backoff(attempts int, base, maxBackoff time.Duration) time.Duration {
	if attempts <= 0 || base <= 0 {
		return 0
	}
	d := base
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// jitter returns a value in [0, maxJitter].
func jitter(r *rand.Rand, maxJitter time.Duration) time.Duration {
	if r == nil || maxJitter <= 0 {
		return 0
	}
	return time.Duration(r.Int63n(int64(maxJitter) + 1)) //nolint:gosec
}
