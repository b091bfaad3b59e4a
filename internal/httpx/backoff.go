package httpx

import (
	"math/rand"
	"time"
)

// Backoff computes exponentially growing delays capped at MaxDelay. Jitter is
// a fraction in [0,1] by which each delay is randomly stretched or shrunk.
type Backoff struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Jitter    float64
}

// NewBackoff returns a Backoff with non-positive inputs replaced by defaults.
func NewBackoff(base, max time.Duration, jitter float64) Backoff {
	if base <= 0 {
		base = 50 * time.Millisecond
	}
	if max <= 0 {
		max = time.Second
	}
	if max < base {
		max = base
	}
	switch {
	case jitter < 0:
		jitter = 0
	case jitter > 1:
		jitter = 1
	}
	return Backoff{BaseDelay: base, MaxDelay: max, Jitter: jitter}
}

// ForAttempt returns the delay before retry number attempt (0-indexed).
func (b Backoff) ForAttempt(attempt int) time.Duration {
	delay := b.BaseDelay
	for i := 0; i < attempt && delay < b.MaxDelay; i++ {
		delay *= 2
	}
	if delay > b.MaxDelay {
		delay = b.MaxDelay
	}
	if b.Jitter == 0 {
		return delay
	}
	factor := 1 + (rand.Float64()*2-1)*b.Jitter
	return time.Duration(float64(delay) * factor)
}
