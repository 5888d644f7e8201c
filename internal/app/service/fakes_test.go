package service

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"address_vision/internal/domain/entity"
)

const vitalikAddr = "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"

// fakeNames answers name lookups from maps. A gate, when set for a name, blocks its resolution until closed.
type fakeNames struct {
	mu      sync.Mutex
	forward map[string]string
	reverse map[string]string
	err     error
	gates   map[string]chan struct{}
	calls   int32
}

func newFakeNames() *fakeNames {
	return &fakeNames{forward: map[string]string{}, reverse: map[string]string{}, gates: map[string]chan struct{}{}}
}

func (f *fakeNames) ResolveName(ctx context.Context, name string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	gate := f.gates[name]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	addr, ok := f.forward[name]
	if !ok {
		return "", entity.ErrNotFound
	}
	return addr, nil
}

func (f *fakeNames) LookupAddress(_ context.Context, address string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.reverse[strings.ToLower(address)], nil
}

// fakeAvatars answers from a map. A non-nil gate blocks every fetch until it is closed.
type fakeAvatars struct {
	urls map[string]string
	err  error
	gate chan struct{}
}

func (f *fakeAvatars) FetchAvatar(ctx context.Context, name string) (string, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.urls[name], nil
}

type fakeTokens struct {
	mu      sync.Mutex
	byChain map[uint64][]entity.TokenHolding
	errs    map[uint64]error
	calls   int32
}

func (f *fakeTokens) GetTokenBalances(_ context.Context, _ string, chain entity.ChainContext) ([]entity.TokenHolding, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[chain.ChainID]; err != nil {
		return nil, err
	}
	return f.byChain[chain.ChainID], nil
}

func (f *fakeTokens) setErr(chainID uint64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[chainID] = err
}

type fakeNfts struct{ items []entity.NftHolding }

func (f *fakeNfts) GetNfts(_ context.Context, _ string, chain entity.ChainContext, _ int) ([]entity.NftHolding, error) {
	var out []entity.NftHolding
	for _, n := range f.items {
		if n.ChainID == chain.ChainID {
			out = append(out, n)
		}
	}
	return out, nil
}

type fakePoaps struct{ items []entity.PoapHolding }

func (f *fakePoaps) GetPoaps(context.Context, string) ([]entity.PoapHolding, error) {
	return f.items, nil
}

type fakeSocial struct{ profile entity.SocialProfile }

func (f *fakeSocial) GetSocialProfile(context.Context, string) (entity.SocialProfile, error) {
	return f.profile, nil
}

type fakeProber struct{}

func (fakeProber) Probe(context.Context, string, entity.ChainContext) (entity.ContractInfo, error) {
	return entity.ContractInfo{Kind: entity.ContractKindEOA}, nil
}
