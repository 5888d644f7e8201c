package httpclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"address_vision/internal/app/port"
	"address_vision/internal/domain/entity"
	"address_vision/internal/infrastructure/configloader"
	"address_vision/internal/pkg/utils"

	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

type alchemyRequest struct {
	Addresses           []alchemyAddress `json:"addresses"`
	WithMetadata        bool             `json:"withMetadata"`
	WithPrices          bool             `json:"withPrices"`
	IncludeNativeTokens bool             `json:"includeNativeTokens"`
	IncludeErc20Tokens  bool             `json:"includeErc20Tokens"`
	PageKey             string           `json:"pageKey,omitempty"`
}

type alchemyAddress struct {
	Address  string   `json:"address"`
	Networks []string `json:"networks"`
}

type alchemyResponse struct {
	Data struct {
		Tokens  []alchemyToken `json:"tokens"`
		PageKey string         `json:"pageKey"`
	} `json:"data"`
}

type alchemyToken struct {
	Network       string  `json:"network"`
	TokenAddress  *string `json:"tokenAddress"`
	TokenBalance  string  `json:"tokenBalance"`
	Error         string  `json:"error"`
	TokenMetadata *struct {
		Name     string `json:"name"`
		Symbol   string `json:"symbol"`
		Decimals *int32 `json:"decimals"`
		Logo     string `json:"logo"`
	} `json:"tokenMetadata"`
	TokenPrices []struct {
		Currency string `json:"currency"`
		Value    string `json:"value"`
	} `json:"tokenPrices"`
}

// AlchemyClient reads priced token balances from the Alchemy portfolio API.
type AlchemyClient struct {
	baseClient
	apiKey   string
	maxPages int
}

// NewAlchemyClient creates an Alchemy portfolio client.
func NewAlchemyClient(cfg configloader.ProviderConfig, logger *zap.Logger) *AlchemyClient {
	return &AlchemyClient{
		baseClient: newBaseClient(entity.SourceTokens, cfg.BaseURL, time.Duration(cfg.RequestTimeoutMillis)*time.Millisecond, logger, "AlchemyClient"),
		apiKey:     cfg.APIKey,
		maxPages:   cfg.MaxPages,
	}
}

// GetTokenBalances implements port.TokenBalanceSource.
func (c *AlchemyClient) GetTokenBalances(ctx context.Context, address string, chain entity.ChainContext) ([]entity.TokenHolding, error) {
	if chain.AlchemyNetwork == "" {
		return nil, fmt.Errorf("chain %s has no alchemy network", chain.Identifier)
	}
	requestURL := fmt.Sprintf("%s/%s/assets/tokens/by-address", c.baseURL, c.apiKey)

	holdings := make([]entity.TokenHolding, 0)
	pageKey := ""
	for page := 0; page < c.maxPages; page++ {
		body := alchemyRequest{
			Addresses:           []alchemyAddress{{Address: address, Networks: []string{chain.AlchemyNetwork}}},
			WithMetadata:        true,
			WithPrices:          true,
			IncludeNativeTokens: true,
			IncludeErc20Tokens:  true,
			PageKey:             pageKey,
		}
		var resp alchemyResponse
		if err := c.doJSON(ctx, fasthttp.MethodPost, requestURL, nil, body, &resp); err != nil {
			return nil, err
		}
		for _, t := range resp.Data.Tokens {
			if h, ok := c.toHolding(t, chain); ok {
				holdings = append(holdings, h)
			}
		}
		if resp.Data.PageKey == "" {
			return holdings, nil
		}
		pageKey = resp.Data.PageKey
	}

	c.logger.Warn("Token list truncated at page limit", zap.String("network", chain.AlchemyNetwork), zap.Int("maxPages", c.maxPages))
	return holdings, nil
}

func (c *AlchemyClient) toHolding(t alchemyToken, chain entity.ChainContext) (entity.TokenHolding, bool) {
	if t.Error != "" {
		return entity.TokenHolding{}, false
	}
	raw, ok := utils.ParseBigInt(t.TokenBalance)
	if !ok {
		c.logger.Debug("Skipping token with unparsable balance", zap.String("balance", t.TokenBalance))
		return entity.TokenHolding{}, false
	}

	h := entity.TokenHolding{RawBalance: raw}
	if t.TokenAddress == nil || *t.TokenAddress == "" {
		h.IsNative = true
		h.Name = chain.NativeSymbol
		h.Symbol = chain.NativeSymbol
		h.Decimals = chain.Decimals
	} else {
		h.ContractAddress = *t.TokenAddress
	}
	if md := t.TokenMetadata; md != nil {
		if md.Name != "" {
			h.Name = md.Name
		}
		if md.Symbol != "" {
			h.Symbol = md.Symbol
		}
		if md.Decimals != nil {
			h.Decimals = *md.Decimals
		}
		h.LogoURL = md.Logo
	}
	if h.Name == "" || h.Symbol == "" {
		return entity.TokenHolding{}, false
	}

	for _, p := range t.TokenPrices {
		if !strings.EqualFold(p.Currency, "usd") {
			continue
		}
		price, err := decimal.NewFromString(p.Value)
		if err != nil {
			break
		}
		value := price.Mul(h.Balance())
		h.PriceUSD = &price
		h.UsdValue = &value
		break
	}
	return h, true
}

var _ port.TokenBalanceSource = (*AlchemyClient)(nil)
