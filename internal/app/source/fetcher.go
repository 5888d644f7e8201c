package source

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"address_vision/internal/app/port"
	"address_vision/internal/domain/entity"
	"address_vision/internal/infrastructure/metrics"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// FetchFunc performs one upstream call for address on chain.
type FetchFunc[T any] func(ctx context.Context, address string, chain entity.ChainContext) (T, error)

type cacheEntry[T any] struct {
	result     entity.SourceResult[T]
	generation uint64
}

// Fetcher wraps one upstream source with a freshness cache, in-flight
// deduplication, a rate limit, a per-call timeout and bounded retries.
// It never returns an error: every outcome is a terminal SourceResult.
type Fetcher[T any] struct {
	name    entity.SourceName
	fetch   FetchFunc[T]
	isEmpty func(T) bool
	policy  Policy
	limiter *Limiter
	logger  port.Logger

	cache *cache.Cache
	group singleflight.Group
	mu    sync.Mutex

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewFetcher creates a fetcher for source name. isEmpty reports data that counts as "no data"; it may be nil.
func NewFetcher[T any](name entity.SourceName, fetch FetchFunc[T], isEmpty func(T) bool, policy Policy, logger port.Logger) *Fetcher[T] {
	return &Fetcher[T]{
		name:    name,
		fetch:   fetch,
		isEmpty: isEmpty,
		policy:  policy,
		limiter: NewLimiter(policy.RateLimit, policy.Burst, string(name)),
		logger:  logger,
		cache:   cache.New(policy.Freshness, 2*policy.Freshness),
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// Name returns the source name.
func (f *Fetcher[T]) Name() entity.SourceName {
	return f.name
}

func cacheKey(name entity.SourceName, address string, chainID uint64) string {
	return string(name) + "|" + strings.ToLower(address) + "|" + strconv.FormatUint(chainID, 10)
}

// Fetch returns the result for (address, chain), from cache when fresh. Concurrent calls for
// the same key share one upstream call. gen is the generation of the query the call serves.
func (f *Fetcher[T]) Fetch(ctx context.Context, address string, chain entity.ChainContext, gen uint64) entity.SourceResult[T] {
	key := cacheKey(f.name, address, chain.ChainID)

	if cached, ok := f.lookup(key); ok {
		metrics.SourceCacheHits.WithLabelValues(string(f.name)).Inc()
		return cached.(cacheEntry[T]).result
	}

	ch := f.group.DoChan(key, func() (interface{}, error) {
		// The shared call outlives any single caller; its duration is bounded by the policy.
		result := f.load(context.WithoutCancel(ctx), address, chain)
		f.store(key, result, gen)
		return result, nil
	})

	select {
	case res := <-ch:
		return res.Val.(entity.SourceResult[T])
	case <-ctx.Done():
		return entity.FailedResult[T](ctx.Err().Error(), !errors.Is(ctx.Err(), context.Canceled), f.now())
	}
}

// Invalidate drops the cached result for (address, chainID) so the next Fetch goes upstream.
func (f *Fetcher[T]) Invalidate(address string, chainID uint64) {
	f.cache.Delete(cacheKey(f.name, address, chainID))
}

func (f *Fetcher[T]) load(ctx context.Context, address string, chain entity.ChainContext) entity.SourceResult[T] {
	start := f.now()
	var result entity.SourceResult[T]
	defer func() {
		metrics.SourceFetchLatency.WithLabelValues(string(f.name)).Observe(f.now().Sub(start).Seconds())
		metrics.SourceFetchTotal.WithLabelValues(string(f.name), chain.Identifier, result.Status.String()).Inc()
	}()

	for attempt := 0; ; attempt++ {
		data, err := f.attempt(ctx, address, chain)
		if err == nil {
			if f.isEmpty != nil && f.isEmpty(data) {
				result = entity.EmptyResult[T](f.now())
			} else {
				result = entity.ReadyResult(data, f.now())
			}
			return result
		}
		if errors.Is(err, entity.ErrNoData) {
			result = entity.EmptyResult[T](f.now())
			return result
		}

		decision := Classify(err)
		if !decision.IsTransient() || attempt >= f.policy.MaxRetries {
			f.logger.Warn("Source fetch failed",
				"source", f.name, "chain", chain.Identifier, "address", address,
				"attempts", attempt+1, "class", decision.Class, "reason", decision.Reason, "error", err)
			result = entity.FailedResult[T](err.Error(), decision.IsTransient(), f.now())
			return result
		}

		delay := f.policy.backoff(attempt)
		metrics.SourceRetries.WithLabelValues(string(f.name), decision.Reason).Inc()
		f.logger.Debug("Retrying source fetch", "source", f.name, "chain", chain.Identifier, "attempt", attempt+1, "delay", delay, "reason", decision.Reason)
		if err := f.sleep(ctx, delay); err != nil {
			result = entity.FailedResult[T](err.Error(), true, f.now())
			return result
		}
	}
}

func (f *Fetcher[T]) attempt(ctx context.Context, address string, chain entity.ChainContext) (data T, err error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return data, err
	}
	callCtx := ctx
	if f.policy.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, f.policy.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = Terminal(fmt.Errorf("%s source panicked: %v", f.name, r))
		}
	}()
	return f.fetch(callCtx, address, chain)
}

func (f *Fetcher[T]) lookup(key string) (interface{}, bool) {
	if f.policy.Freshness <= 0 {
		return nil, false
	}
	return f.cache.Get(key)
}

// store caches result unless a newer generation already wrote the key.
func (f *Fetcher[T]) store(key string, result entity.SourceResult[T], gen uint64) {
	if f.policy.Freshness <= 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if existing, ok := f.cache.Get(key); ok && existing.(cacheEntry[T]).generation > gen {
		metrics.StaleWritesDropped.WithLabelValues(string(f.name)).Inc()
		return
	}
	f.cache.SetDefault(key, cacheEntry[T]{result: result, generation: gen})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
