package util

import (
	"time"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter for single-event admission checks.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter creates a token bucket limiter.
// r: tokens per second. b: burst size. A non-positive r disables limiting.
func NewLimiter(r float64, b int) *Limiter {
	if r <= 0 {
		return &Limiter{inner: rate.NewLimiter(rate.Inf, 1)}
	}
	if b < 1 {
		b = 1
	}
	return &Limiter{
		inner: rate.NewLimiter(rate.Limit(r), b),
	}
}

// Allow reports whether one event may happen now.
func (l *Limiter) Allow() bool {
	return l.inner.AllowN(time.Now(), 1)
}
