package service

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"address_vision/internal/app/port"
	"address_vision/internal/app/provider"
	"address_vision/internal/domain/entity"
	"address_vision/internal/infrastructure/configloader"
	networkdefinition "address_vision/internal/infrastructure/network/definition"
	"address_vision/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionFixture struct {
	session *LookupSession
	names   *fakeNames
	avatars *fakeAvatars
	tokens  *fakeTokens
	history port.HistoryProvider
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	log := logger.NewNop()
	cfg := configloader.Default()

	names := newFakeNames()
	names.forward["vitalik.eth"] = vitalikAddr
	names.reverse[strings.ToLower(vitalikAddr)] = "vitalik.eth"

	tokens := &fakeTokens{
		byChain: map[uint64][]entity.TokenHolding{
			1: {
				{Name: "Claim your reward", Symbol: "CLAIM", RawBalance: big.NewInt(1000), Decimals: 18, UsdValue: usd("50")},
				{Name: "USD Coin", Symbol: "USDC", RawBalance: big.NewInt(5000000), Decimals: 6, UsdValue: usd("5")},
			},
		},
		errs: map[uint64]error{},
	}

	chains := networkdefinition.NewNetworkDefinitionProvider(log, []string{"ethereum", "optimism"}, nil)
	aggregator, err := NewAggregator(cfg.Aggregation, chains)
	require.NoError(t, err)

	sources := NewSourceSet(configloader.SourcesConfig{
		FreshnessSeconds:     60,
		TimeoutMillis:        1000,
		MaxRetries:           -1,
		RetryBaseDelayMillis: 1,
	}, SourceAdapters{
		Tokens:   tokens,
		Nfts:     &fakeNfts{},
		NftLimit: 10,
		Poaps:    &fakePoaps{},
		Social:   &fakeSocial{},
		Contract: fakeProber{},
	}, log)

	avatars := &fakeAvatars{urls: map[string]string{"vitalik.eth": "https://avatar/vitalik"}}
	contractChain := networkdefinition.Ethereum
	session := NewLookupSession(
		NewQueryNormalizer(cfg.Query),
		NewIdentityResolver(names, avatars, log),
		aggregator,
		chains,
		sources,
		SessionConfig{Concurrency: 4, ContractChain: &contractChain},
		log,
	)
	history := provider.NewHistoryProvider(10, log)
	session.OnIdentityResolved(provider.RecordIdentityEvents(history))
	t.Cleanup(session.Close)

	return &sessionFixture{session: session, names: names, avatars: avatars, tokens: tokens, history: history}
}

func (f *sessionFixture) waitFor(t *testing.T, cond func(port.LookupSnapshot) bool) port.LookupSnapshot {
	t.Helper()
	require.Eventually(t, func() bool { return cond(f.session.Snapshot()) }, 2*time.Second, 5*time.Millisecond)
	return f.session.Snapshot()
}

func settled(s port.LookupSnapshot) bool {
	return s.View.Kind == entity.ViewLoaded && s.View.PendingSources == 0
}

func TestSessionAddressLookup(t *testing.T) {
	f := newSessionFixture(t)

	view := f.session.Submit(context.Background(), "  eth:"+vitalikAddr+" ")
	assert.Contains(t, []entity.ViewStateKind{entity.ViewResolving, entity.ViewLoaded}, view.Kind)

	snap := f.waitFor(t, func(s port.LookupSnapshot) bool {
		return settled(s) && s.View.Identity.DisplayName == "vitalik.eth"
	})
	assert.Equal(t, vitalikAddr, snap.View.Identity.Address)
	assert.Equal(t, "https://avatar/vitalik", snap.View.Identity.AvatarURL)
	assert.Equal(t, 0, snap.View.FailedSources)

	assert.Equal(t, "$5.00", snap.Balance.TotalDisplay())
	require.Len(t, snap.Balance.PerChain[1].Holdings, 1)
	assert.Equal(t, "USDC", snap.Balance.PerChain[1].Holdings[0].Symbol)
	assert.Equal(t, entity.StatusEmpty, snap.Tokens[10].Status)
	assert.Equal(t, entity.StatusEmpty, snap.Poaps.Status)
	assert.Equal(t, entity.StatusReady, snap.Contract.Status)
	assert.Equal(t, entity.ContractKindEOA, snap.Contract.Data.Kind)

	require.Eventually(t, func() bool { return len(f.history.List()) == 1 }, 2*time.Second, 5*time.Millisecond)
	entries := f.history.List()
	assert.Equal(t, vitalikAddr, entries[0].Address)
	assert.Equal(t, "vitalik.eth", entries[0].EnsName)
}

func TestSessionAddressLoadsBeforeNameAndAvatar(t *testing.T) {
	f := newSessionFixture(t)
	gate := make(chan struct{})
	f.avatars.gate = gate

	f.session.Submit(context.Background(), vitalikAddr)

	snap := f.waitFor(t, settled)
	assert.Equal(t, "0xd8dA...6045", snap.View.Identity.DisplayName, "sources load while the avatar is pending")
	assert.Empty(t, snap.View.Identity.AvatarURL)
	assert.Positive(t, atomic.LoadInt32(&f.tokens.calls))
	assert.Equal(t, "$5.00", snap.Balance.TotalDisplay())
	assert.Empty(t, f.history.List())

	close(gate)
	snap = f.waitFor(t, func(s port.LookupSnapshot) bool { return s.View.Identity.AvatarURL != "" })
	assert.Equal(t, "vitalik.eth", snap.View.Identity.DisplayName)
	assert.Equal(t, "vitalik.eth", snap.View.Identity.SourceEnsName)
	assert.Equal(t, entity.ViewLoaded, snap.View.Kind)
	require.Eventually(t, func() bool { return len(f.history.List()) == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestSessionSupersededEnrichmentIsDropped(t *testing.T) {
	f := newSessionFixture(t)
	gate := make(chan struct{})
	f.avatars.gate = gate

	f.session.Submit(context.Background(), vitalikAddr)
	f.waitFor(t, settled)

	other := "0x000000000000000000000000000000000000dEaD"
	f.session.Submit(context.Background(), other)
	f.waitFor(t, settled)
	close(gate)
	f.session.Close()

	snap := f.session.Snapshot()
	assert.Equal(t, other, snap.View.Identity.Address)
	assert.Equal(t, "0x0000...dEaD", snap.View.Identity.DisplayName)
	entries := f.history.List()
	require.Len(t, entries, 1)
	assert.Equal(t, other, entries[0].Address)
}

func TestSessionConcurrentSubmitsSettleOnOneGeneration(t *testing.T) {
	f := newSessionFixture(t)
	queries := []string{vitalikAddr, "vitalik.eth", "0x000000000000000000000000000000000000dEaD", "0x0000000000000000000000000000000000000001"}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(q string) {
			defer wg.Done()
			f.session.Submit(context.Background(), q)
		}(queries[i%len(queries)])
	}
	wg.Wait()

	snap := f.waitFor(t, settled)
	assert.Equal(t, uint64(20), snap.View.Generation)
	expected := snap.View.Query
	if expected == "vitalik.eth" {
		expected = vitalikAddr
	}
	assert.Equal(t, expected, snap.View.Identity.Address, "identity belongs to the query on display")
}

func TestSessionNameLookup(t *testing.T) {
	f := newSessionFixture(t)
	f.session.Submit(context.Background(), "Vitalik.eth")

	snap := f.waitFor(t, settled)
	assert.Equal(t, vitalikAddr, snap.View.Identity.Address)
	assert.Equal(t, "vitalik.eth", snap.View.Query)
	assert.Empty(t, snap.View.Identity.AvatarURL)
}

func TestSessionUnknownName(t *testing.T) {
	f := newSessionFixture(t)
	f.session.Submit(context.Background(), "doesnotexist12345.eth")

	snap := f.waitFor(t, func(s port.LookupSnapshot) bool { return s.View.Kind == entity.ViewNotFound })
	assert.Nil(t, snap.View.Identity)
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.tokens.calls))
	assert.Empty(t, f.history.List())
}

func TestSessionInvalidInputStaysIdle(t *testing.T) {
	f := newSessionFixture(t)

	view := f.session.Submit(context.Background(), "")
	assert.Equal(t, entity.ViewIdle, view.Kind)
	assert.Equal(t, InvalidQueryHint, view.Hint)
	assert.Equal(t, uint64(0), view.Generation)

	f.session.Submit(context.Background(), "not an address")
	assert.Equal(t, entity.ViewIdle, f.session.Snapshot().View.Kind)
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.names.calls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.tokens.calls))
}

func TestSessionInvalidInputKeepsLoadedState(t *testing.T) {
	f := newSessionFixture(t)
	f.session.Submit(context.Background(), vitalikAddr)
	f.waitFor(t, settled)

	view := f.session.Submit(context.Background(), "0x123")
	assert.Equal(t, entity.ViewLoaded, view.Kind)
	assert.Equal(t, InvalidQueryHint, view.Hint)
}

func TestSessionNewQuerySupersedesPending(t *testing.T) {
	f := newSessionFixture(t)
	gate := make(chan struct{})
	f.names.mu.Lock()
	f.names.forward["slow.eth"] = "0x000000000000000000000000000000000000dEaD"
	f.names.gates["slow.eth"] = gate
	f.names.mu.Unlock()

	first := f.session.Submit(context.Background(), "slow.eth")
	assert.Equal(t, entity.ViewResolving, first.Kind)

	second := f.session.Submit(context.Background(), vitalikAddr)
	assert.Greater(t, second.Generation, first.Generation)

	f.waitFor(t, settled)
	close(gate)
	f.session.Close()

	snap := f.session.Snapshot()
	assert.Equal(t, vitalikAddr, snap.View.Identity.Address)
	assert.Equal(t, second.Generation, snap.View.Generation)
	entries := f.history.List()
	require.Len(t, entries, 1, "superseded lookups never reach history")
	assert.Equal(t, vitalikAddr, entries[0].Address)
}

func TestSessionPartialResultsAndRetry(t *testing.T) {
	f := newSessionFixture(t)
	f.tokens.setErr(10, &entity.SourceError{Source: entity.SourceTokens, StatusCode: 401, Err: errors.New("unauthorized")})

	f.session.Submit(context.Background(), vitalikAddr)
	snap := f.waitFor(t, settled)
	assert.Equal(t, entity.ViewLoaded, snap.View.Kind, "source failures never escalate")
	assert.Equal(t, 1, snap.View.FailedSources)
	assert.True(t, snap.Balance.Partial)
	assert.Equal(t, "$5.00+", snap.Balance.TotalDisplay())
	assert.Equal(t, entity.StatusFailed, snap.Tokens[10].Status)
	assert.False(t, snap.Tokens[10].Retryable)
	gen := snap.View.Generation

	f.tokens.setErr(10, nil)
	f.session.Retry(context.Background())

	snap = f.waitFor(t, func(s port.LookupSnapshot) bool { return settled(s) && s.View.FailedSources == 0 })
	assert.False(t, snap.Balance.Partial)
	assert.Equal(t, gen, snap.View.Generation, "retry stays in the current generation")
	assert.Equal(t, entity.StatusEmpty, snap.Tokens[10].Status)
}

func TestSessionRetryAfterResolutionError(t *testing.T) {
	f := newSessionFixture(t)
	f.names.mu.Lock()
	f.names.err = errors.New("connection refused")
	f.names.mu.Unlock()

	first := f.session.Submit(context.Background(), "vitalik.eth")
	f.waitFor(t, func(s port.LookupSnapshot) bool { return s.View.Kind == entity.ViewError })

	f.names.mu.Lock()
	f.names.err = nil
	f.names.mu.Unlock()

	view := f.session.Retry(context.Background())
	assert.Greater(t, view.Generation, first.Generation)
	snap := f.waitFor(t, settled)
	assert.Equal(t, vitalikAddr, snap.View.Identity.Address)
}

func TestSessionSubscribe(t *testing.T) {
	f := newSessionFixture(t)
	var updates int32
	unsubscribe := f.session.Subscribe(func(port.LookupSnapshot) { atomic.AddInt32(&updates, 1) })

	f.session.Submit(context.Background(), vitalikAddr)
	f.waitFor(t, settled)
	f.session.Close()
	assert.Greater(t, atomic.LoadInt32(&updates), int32(2))

	unsubscribe()
	before := atomic.LoadInt32(&updates)
	f.session.Submit(context.Background(), "")
	assert.Equal(t, before, atomic.LoadInt32(&updates))
}
