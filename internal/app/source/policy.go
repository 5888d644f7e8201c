package source

import (
	"time"

	"address_vision/internal/domain/entity"
	"address_vision/internal/infrastructure/configloader"
)

// Policy holds the freshness, timeout, retry and rate settings of one source.
type Policy struct {
	Freshness      time.Duration
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	RateLimit      float64
	Burst          int
}

// PolicyFromConfig builds the policy of name from the shared settings and its override, if any.
func PolicyFromConfig(cfg configloader.SourcesConfig, name entity.SourceName) Policy {
	p := Policy{
		Freshness:      time.Duration(cfg.FreshnessSeconds) * time.Second,
		Timeout:        time.Duration(cfg.TimeoutMillis) * time.Millisecond,
		MaxRetries:     cfg.MaxRetries,
		RetryBaseDelay: time.Duration(cfg.RetryBaseDelayMillis) * time.Millisecond,
		RateLimit:      cfg.RateLimitPerSecond,
		Burst:          cfg.Burst,
	}
	if o, ok := cfg.Overrides[string(name)]; ok {
		if o.TimeoutMillis > 0 {
			p.Timeout = time.Duration(o.TimeoutMillis) * time.Millisecond
		}
		if o.RateLimitPerSecond > 0 {
			p.RateLimit = o.RateLimitPerSecond
		}
		if o.Burst > 0 {
			p.Burst = o.Burst
		}
		if o.MaxRetries != nil {
			p.MaxRetries = *o.MaxRetries
		}
	}
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	p.RetryMaxDelay = p.RetryBaseDelay << 4
	return p
}

// backoff returns the delay before retry attempt n (0-based), doubling from the base up to the maximum.
func (p Policy) backoff(n int) time.Duration {
	d := p.RetryBaseDelay
	for i := 0; i < n && d < p.RetryMaxDelay; i++ {
		d *= 2
	}
	if p.RetryMaxDelay > 0 && d > p.RetryMaxDelay {
		d = p.RetryMaxDelay
	}
	return d
}
