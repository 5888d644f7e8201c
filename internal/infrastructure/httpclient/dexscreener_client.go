package httpclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"address_vision/internal/domain/entity"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// priceSource labels DEX Screener errors. Prices are not a dashboard source of their own.
const priceSource entity.SourceName = "prices"

// DEXScreenerClient defines the interface for interacting with the DEX Screener API.
type DEXScreenerClient interface {
	GetTokenPairsByAddresses(ctx context.Context, dexscreenerChainID string, tokenAddresses []string) ([]entity.PairData, error)
}

type dexScreenerClientImpl struct {
	baseClient
	maxTokensPerRequest int
}

// NewDEXScreenerClient creates a DEX Screener client rooted at baseURL.
func NewDEXScreenerClient(baseURL string, timeout time.Duration, logger *zap.Logger, maxTokensPerRequest int) DEXScreenerClient {
	return &dexScreenerClientImpl{
		baseClient:          newBaseClient(priceSource, baseURL, timeout, logger, "DEXScreenerClient"),
		maxTokensPerRequest: maxTokensPerRequest,
	}
}

// GetTokenPairsByAddresses implements the DEXScreenerClient interface.
func (c *dexScreenerClientImpl) GetTokenPairsByAddresses(ctx context.Context, dexscreenerChainID string, tokenAddresses []string) ([]entity.PairData, error) {
	if len(tokenAddresses) == 0 {
		return nil, fmt.Errorf("tokenAddresses cannot be empty")
	}
	if len(tokenAddresses) > c.maxTokensPerRequest {
		c.logger.Warn("Number of token addresses exceeds maxTokensPerRequest",
			zap.Int("requestedCount", len(tokenAddresses)),
			zap.Int("maxAllowed", c.maxTokensPerRequest))
		return nil, fmt.Errorf("number of token addresses (%d) exceeds max tokens per request (%d)", len(tokenAddresses), c.maxTokensPerRequest)
	}

	requestURL := fmt.Sprintf("%s/tokens/v1/%s/%s", c.baseURL, url.PathEscape(dexscreenerChainID), strings.Join(tokenAddresses, ","))
	c.logger.Debug("Requesting token pairs from DEX Screener", zap.String("url", requestURL))

	resp, err := c.do(ctx, fasthttp.MethodGet, requestURL, nil, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != fasthttp.StatusOK {
		c.logger.Error("DEX Screener API request failed",
			zap.String("url", requestURL),
			zap.Int("statusCode", resp.StatusCode),
			zap.ByteString("responseBody", truncate(resp.Body)))
		return nil, &entity.SourceError{Source: priceSource, StatusCode: resp.StatusCode, Err: fmt.Errorf("request to %s failed", requestURL)}
	}

	// The endpoint answers either with a bare array or with a {"pairs": [...]} wrapper.
	var wrapper entity.DEXTokenPair
	if err := json.Unmarshal(resp.Body, &wrapper); err == nil && wrapper.Pairs != nil {
		return wrapper.Pairs, nil
	}

	var directPairs []entity.PairData
	if err := json.Unmarshal(resp.Body, &directPairs); err != nil {
		c.logger.Error("Failed to unmarshal DEX Screener response",
			zap.String("url", requestURL),
			zap.ByteString("responseBody", truncate(resp.Body)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to unmarshal DEX Screener response from %s: %w", requestURL, err)
	}

	if len(directPairs) == 0 {
		c.logger.Debug("DEX Screener returned no pairs", zap.String("dexscreenerChainID", dexscreenerChainID))
	}
	return directPairs, nil
}
