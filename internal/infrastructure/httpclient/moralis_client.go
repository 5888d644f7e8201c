package httpclient

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"address_vision/internal/app/port"
	"address_vision/internal/domain/entity"
	"address_vision/internal/infrastructure/configloader"
	"address_vision/internal/pkg/utils"

	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

type moralisResponse struct {
	Cursor string         `json:"cursor"`
	Result []moralisToken `json:"result"`
}

type moralisToken struct {
	TokenAddress string           `json:"token_address"`
	Name         string           `json:"name"`
	Symbol       string           `json:"symbol"`
	Logo         string           `json:"logo"`
	Decimals     flexString       `json:"decimals"`
	Balance      string           `json:"balance"`
	PossibleSpam bool             `json:"possible_spam"`
	UsdPrice     *decimal.Decimal `json:"usd_price"`
	UsdValue     *decimal.Decimal `json:"usd_value"`
	NativeToken  bool             `json:"native_token"`
}

// flexString accepts a value sent either as a number or as a string.
type flexString string

func (n *flexString) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "null" {
		s = ""
	}
	*n = flexString(s)
	return nil
}

// MoralisClient reads token balances from the Moralis wallet API.
type MoralisClient struct {
	baseClient
	apiKey   string
	pageSize int
	maxPages int
}

// NewMoralisClient creates a Moralis wallet client.
func NewMoralisClient(cfg configloader.ProviderConfig, logger *zap.Logger) *MoralisClient {
	return &MoralisClient{
		baseClient: newBaseClient(entity.SourceTokens, cfg.BaseURL, time.Duration(cfg.RequestTimeoutMillis)*time.Millisecond, logger, "MoralisClient"),
		apiKey:     cfg.APIKey,
		pageSize:   cfg.PageSize,
		maxPages:   cfg.MaxPages,
	}
}

// GetTokenBalances implements port.TokenBalanceSource.
func (c *MoralisClient) GetTokenBalances(ctx context.Context, address string, chain entity.ChainContext) ([]entity.TokenHolding, error) {
	if chain.MoralisChain == "" {
		return nil, fmt.Errorf("chain %s has no moralis identifier", chain.Identifier)
	}
	headers := map[string]string{"X-API-Key": c.apiKey}

	holdings := make([]entity.TokenHolding, 0)
	cursor := ""
	for page := 0; page < c.maxPages; page++ {
		q := url.Values{}
		q.Set("chain", chain.MoralisChain)
		q.Set("exclude_spam", "true")
		q.Set("exclude_unverified_contracts", "true")
		q.Set("exclude_native", "false")
		if c.pageSize > 0 {
			q.Set("limit", strconv.Itoa(c.pageSize))
		}
		if cursor != "" {
			q.Set("cursor", cursor)
		}
		requestURL := fmt.Sprintf("%s/wallets/%s/tokens?%s", c.baseURL, url.PathEscape(address), q.Encode())

		var resp moralisResponse
		if err := c.doJSON(ctx, fasthttp.MethodGet, requestURL, headers, nil, &resp); err != nil {
			return nil, err
		}
		for _, t := range resp.Result {
			if h, ok := toMoralisHolding(t, chain); ok {
				holdings = append(holdings, h)
			}
		}
		if resp.Cursor == "" {
			return holdings, nil
		}
		cursor = resp.Cursor
	}

	c.logger.Warn("Token list truncated at page limit", zap.String("chain", chain.MoralisChain), zap.Int("maxPages", c.maxPages))
	return holdings, nil
}

func toMoralisHolding(t moralisToken, chain entity.ChainContext) (entity.TokenHolding, bool) {
	if t.PossibleSpam || t.Name == "" || t.Symbol == "" {
		return entity.TokenHolding{}, false
	}
	raw, ok := utils.ParseBigInt(t.Balance)
	if !ok {
		return entity.TokenHolding{}, false
	}
	decimals := chain.Decimals
	if d, err := strconv.ParseInt(string(t.Decimals), 10, 32); err == nil {
		decimals = int32(d)
	}

	h := entity.TokenHolding{
		Name:       t.Name,
		Symbol:     t.Symbol,
		RawBalance: raw,
		Decimals:   decimals,
		LogoURL:    t.Logo,
		IsNative:   t.NativeToken,
		PriceUSD:   t.UsdPrice,
		UsdValue:   t.UsdValue,
	}
	if !t.NativeToken {
		h.ContractAddress = t.TokenAddress
	}
	if h.UsdValue == nil && h.PriceUSD != nil {
		v := h.PriceUSD.Mul(h.Balance())
		h.UsdValue = &v
	}
	return h, true
}

var _ port.TokenBalanceSource = (*MoralisClient)(nil)
