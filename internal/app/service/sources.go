package service

import (
	"context"

	"address_vision/internal/app/port"
	"address_vision/internal/app/source"
	"address_vision/internal/domain/entity"
	"address_vision/internal/infrastructure/configloader"
)

// SourceAdapters are the upstream implementations behind each source.
type SourceAdapters struct {
	Tokens   port.TokenBalanceSource
	Prices   port.TokenPriceService // optional price fallback
	Nfts     port.NftSource
	NftLimit int
	Poaps    port.PoapSource
	Social   port.SocialSource
	Contract port.ContractProber
}

// SourceSet holds one fetcher per source.
type SourceSet struct {
	Tokens   *source.Fetcher[[]entity.TokenHolding]
	Nfts     *source.Fetcher[[]entity.NftHolding]
	Poaps    *source.Fetcher[[]entity.PoapHolding]
	Social   *source.Fetcher[entity.SocialProfile]
	Contract *source.Fetcher[entity.ContractInfo]
}

func isEmptySlice[T any](v []T) bool { return len(v) == 0 }

// NewSourceSet wraps the adapters into fetchers configured by cfg.
func NewSourceSet(cfg configloader.SourcesConfig, a SourceAdapters, logger port.Logger) *SourceSet {
	tokens := func(ctx context.Context, address string, chain entity.ChainContext) ([]entity.TokenHolding, error) {
		holdings, err := a.Tokens.GetTokenBalances(ctx, address, chain)
		if err != nil || a.Prices == nil {
			return holdings, err
		}
		return a.Prices.FillMissingPrices(ctx, chain, holdings), nil
	}
	nfts := func(ctx context.Context, address string, chain entity.ChainContext) ([]entity.NftHolding, error) {
		return a.Nfts.GetNfts(ctx, address, chain, a.NftLimit)
	}
	poaps := func(ctx context.Context, address string, _ entity.ChainContext) ([]entity.PoapHolding, error) {
		return a.Poaps.GetPoaps(ctx, address)
	}
	social := func(ctx context.Context, address string, _ entity.ChainContext) (entity.SocialProfile, error) {
		return a.Social.GetSocialProfile(ctx, address)
	}

	return &SourceSet{
		Tokens:   source.NewFetcher(entity.SourceTokens, tokens, isEmptySlice[entity.TokenHolding], source.PolicyFromConfig(cfg, entity.SourceTokens), logger),
		Nfts:     source.NewFetcher(entity.SourceNfts, nfts, isEmptySlice[entity.NftHolding], source.PolicyFromConfig(cfg, entity.SourceNfts), logger),
		Poaps:    source.NewFetcher(entity.SourcePoaps, poaps, isEmptySlice[entity.PoapHolding], source.PolicyFromConfig(cfg, entity.SourcePoaps), logger),
		Social:   source.NewFetcher(entity.SourceSocial, social, entity.SocialProfile.IsEmpty, source.PolicyFromConfig(cfg, entity.SourceSocial), logger),
		Contract: source.NewFetcher(entity.SourceContract, a.Contract.Probe, nil, source.PolicyFromConfig(cfg, entity.SourceContract), logger),
	}
}
