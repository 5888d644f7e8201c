package port

import (
	"context"

	"address_vision/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// TokenPriceService provides USD prices for tokens the balance provider did not price.
type TokenPriceService interface {
	// GetPriceUSD returns the cached price of a token.
	GetPriceUSD(dexScreenerChainID string, tokenAddress string) (decimal.Decimal, bool)

	// FillMissingPrices prices holdings without a USD value and returns the updated slice.
	FillMissingPrices(ctx context.Context, chain entity.ChainContext, holdings []entity.TokenHolding) []entity.TokenHolding
}
