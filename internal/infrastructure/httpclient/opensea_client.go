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

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

type openSeaResponse struct {
	Nfts []openSeaNft `json:"nfts"`
	Next string       `json:"next"`
}

type openSeaNft struct {
	Identifier      string `json:"identifier"`
	Collection      string `json:"collection"`
	Contract        string `json:"contract"`
	Name            string `json:"name"`
	ImageURL        string `json:"image_url"`
	DisplayImageURL string `json:"display_image_url"`
	UpdatedAt       string `json:"updated_at"`
	IsDisabled      bool   `json:"is_disabled"`
}

// OpenSeaClient lists NFTs of an account from the OpenSea API.
type OpenSeaClient struct {
	baseClient
	apiKey   string
	pageSize int
	maxPages int
}

// NewOpenSeaClient creates an OpenSea client.
func NewOpenSeaClient(cfg configloader.ProviderConfig, logger *zap.Logger) *OpenSeaClient {
	return &OpenSeaClient{
		baseClient: newBaseClient(entity.SourceNfts, cfg.BaseURL, time.Duration(cfg.RequestTimeoutMillis)*time.Millisecond, logger, "OpenSeaClient"),
		apiKey:     cfg.APIKey,
		pageSize:   cfg.PageSize,
		maxPages:   cfg.MaxPages,
	}
}

// GetNfts implements port.NftSource. It pages until limit NFTs are collected or the account is exhausted.
func (c *OpenSeaClient) GetNfts(ctx context.Context, address string, chain entity.ChainContext, limit int) ([]entity.NftHolding, error) {
	if chain.OpenSeaChain == "" {
		return nil, fmt.Errorf("chain %s has no opensea identifier", chain.Identifier)
	}
	headers := map[string]string{"x-api-key": c.apiKey}
	pageSize := c.pageSize
	if limit > 0 && (pageSize <= 0 || limit < pageSize) {
		pageSize = limit
	}

	holdings := make([]entity.NftHolding, 0)
	next := ""
	for page := 0; page < c.maxPages; page++ {
		q := url.Values{}
		if pageSize > 0 {
			q.Set("limit", strconv.Itoa(pageSize))
		}
		if next != "" {
			q.Set("next", next)
		}
		requestURL := fmt.Sprintf("%s/chain/%s/account/%s/nfts?%s", c.baseURL, url.PathEscape(chain.OpenSeaChain), url.PathEscape(address), q.Encode())

		var resp openSeaResponse
		if err := c.doJSON(ctx, fasthttp.MethodGet, requestURL, headers, nil, &resp); err != nil {
			return nil, err
		}
		for _, n := range resp.Nfts {
			if n.IsDisabled {
				continue
			}
			holdings = append(holdings, toNftHolding(n, chain.ChainID))
			if limit > 0 && len(holdings) >= limit {
				return holdings, nil
			}
		}
		if resp.Next == "" {
			break
		}
		next = resp.Next
	}
	return holdings, nil
}

func toNftHolding(n openSeaNft, chainID uint64) entity.NftHolding {
	image := n.DisplayImageURL
	if image == "" {
		image = n.ImageURL
	}
	h := entity.NftHolding{
		ContractAddress: n.Contract,
		TokenID:         n.Identifier,
		Name:            n.Name,
		Collection:      n.Collection,
		ImageURL:        image,
		ChainID:         chainID,
	}
	if t, err := parseTimestamp(n.UpdatedAt); err == nil {
		h.UpdatedAt = t
	}
	return h
}

var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05", "2006-01-02"}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

var _ port.NftSource = (*OpenSeaClient)(nil)
