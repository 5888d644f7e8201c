package source

import (
	"context"
	"fmt"
	"time"

	"address_vision/internal/infrastructure/metrics"

	"golang.org/x/time/rate"
)

// Limiter wraps a token-bucket rate limiter for calls to one source.
type Limiter struct {
	limiter *rate.Limiter
	source  string
}

// NewLimiter allows rps calls per second with a burst of burst calls.
// A non-positive rps disables limiting.
func NewLimiter(rps float64, burst int, source string) *Limiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiter: rate.NewLimiter(limit, burst),
		source:  source,
	}
}

// Wait blocks until the limiter allows one call, or ctx is done.
// Reserve guarantees exactly one token is consumed per call.
func (l *Limiter) Wait(ctx context.Context) error {
	r := l.limiter.Reserve()
	if !r.OK() {
		return fmt.Errorf("rate: cannot reserve token")
	}
	delay := r.Delay()
	if delay > 0 {
		metrics.SourceRateLimitWaits.WithLabelValues(l.source).Inc()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			r.Cancel()
			return ctx.Err()
		}
	}
	return nil
}
