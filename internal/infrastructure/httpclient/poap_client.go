package httpclient

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"address_vision/internal/app/port"
	"address_vision/internal/domain/entity"
	"address_vision/internal/infrastructure/configloader"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

type poapToken struct {
	Event struct {
		ID       int64  `json:"id"`
		FancyID  string `json:"fancy_id"`
		Name     string `json:"name"`
		ImageURL string `json:"image_url"`
	} `json:"event"`
	TokenID string `json:"tokenId"`
	Owner   string `json:"owner"`
	Chain   string `json:"chain"`
	Created string `json:"created"`
}

// POAPClient lists attendance badges from the POAP API.
type POAPClient struct {
	baseClient
	apiKey string
}

// NewPOAPClient creates a POAP client.
func NewPOAPClient(cfg configloader.ProviderConfig, logger *zap.Logger) *POAPClient {
	return &POAPClient{
		baseClient: newBaseClient(entity.SourcePoaps, cfg.BaseURL, time.Duration(cfg.RequestTimeoutMillis)*time.Millisecond, logger, "POAPClient"),
		apiKey:     cfg.APIKey,
	}
}

// GetPoaps implements port.PoapSource. All POAPs are returned in API order.
func (c *POAPClient) GetPoaps(ctx context.Context, address string) ([]entity.PoapHolding, error) {
	requestURL := fmt.Sprintf("%s/actions/scan/%s", c.baseURL, url.PathEscape(address))
	var headers map[string]string
	if c.apiKey != "" {
		headers = map[string]string{"X-API-Key": c.apiKey}
	}

	var tokens []poapToken
	if err := c.doJSON(ctx, fasthttp.MethodGet, requestURL, headers, nil, &tokens); err != nil {
		return nil, err
	}

	holdings := make([]entity.PoapHolding, 0, len(tokens))
	for _, t := range tokens {
		h := entity.PoapHolding{
			TokenID:   t.TokenID,
			EventID:   t.Event.ID,
			EventName: t.Event.Name,
			ImageURL:  t.Event.ImageURL,
			Chain:     t.Chain,
		}
		if created, err := parseTimestamp(t.Created); err == nil {
			h.Created = created
		} else {
			c.logger.Debug("Unparsable POAP creation time", zap.String("tokenId", t.TokenID), zap.String("created", t.Created))
		}
		holdings = append(holdings, h)
	}
	return holdings, nil
}

var _ port.PoapSource = (*POAPClient)(nil)
