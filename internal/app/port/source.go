package port

import (
	"context"

	"address_vision/internal/domain/entity"
)

// TokenBalanceSource lists fungible balances of an address on a chain.
type TokenBalanceSource interface {
	GetTokenBalances(ctx context.Context, address string, chain entity.ChainContext) ([]entity.TokenHolding, error)
}

// NftSource lists NFTs owned by an address on a chain.
type NftSource interface {
	GetNfts(ctx context.Context, address string, chain entity.ChainContext, limit int) ([]entity.NftHolding, error)
}

// PoapSource lists POAPs owned by an address.
type PoapSource interface {
	GetPoaps(ctx context.Context, address string) ([]entity.PoapHolding, error)
}

// SocialSource returns the social graph profile of an address.
type SocialSource interface {
	GetSocialProfile(ctx context.Context, address string) (entity.SocialProfile, error)
}

// ContractProber classifies the code deployed at an address.
type ContractProber interface {
	Probe(ctx context.Context, address string, chain entity.ChainContext) (entity.ContractInfo, error)
}
