package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"address_vision/internal/app/port"
	"address_vision/internal/domain/entity"
	"address_vision/internal/infrastructure/configloader"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type efpStats struct {
	FollowersCount flexString `json:"followers_count"`
	FollowingCount flexString `json:"following_count"`
}

type efpAccount struct {
	Address string `json:"address"`
	ENS     *struct {
		Name    string            `json:"name"`
		Avatar  string            `json:"avatar"`
		Records map[string]string `json:"records"`
	} `json:"ens"`
}

// EFPClient reads follower stats and profile records from the Ethereum Follow Protocol API.
type EFPClient struct {
	baseClient
}

// NewEFPClient creates an EFP client.
func NewEFPClient(cfg configloader.ProviderConfig, logger *zap.Logger) *EFPClient {
	return &EFPClient{
		baseClient: newBaseClient(entity.SourceSocial, cfg.BaseURL, time.Duration(cfg.RequestTimeoutMillis)*time.Millisecond, logger, "EFPClient"),
	}
}

// GetSocialProfile implements port.SocialSource. Stats are required; the account record is best-effort.
func (c *EFPClient) GetSocialProfile(ctx context.Context, address string) (entity.SocialProfile, error) {
	var (
		stats   efpStats
		account efpAccount
	)
	base := fmt.Sprintf("%s/users/%s", c.baseURL, url.PathEscape(address))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.doJSON(gctx, fasthttp.MethodGet, base+"/stats", nil, nil, &stats)
	})
	g.Go(func() error {
		err := c.doJSON(gctx, fasthttp.MethodGet, base+"/account", nil, nil, &account)
		var srcErr *entity.SourceError
		if errors.As(err, &srcErr) && srcErr.StatusCode == fasthttp.StatusNotFound {
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		var srcErr *entity.SourceError
		if errors.As(err, &srcErr) && srcErr.StatusCode == fasthttp.StatusNotFound {
			return entity.SocialProfile{}, entity.ErrNoData
		}
		return entity.SocialProfile{}, err
	}

	profile := entity.SocialProfile{
		Followers: atoiOrZero(string(stats.FollowersCount)),
		Following: atoiOrZero(string(stats.FollowingCount)),
	}
	if ens := account.ENS; ens != nil {
		profile.EnsName = ens.Name
		profile.AvatarURL = ens.Avatar
		if len(ens.Records) > 0 {
			profile.Records = make(map[string]string, len(ens.Records))
			for k, v := range ens.Records {
				if v != "" {
					profile.Records[k] = v
				}
			}
		}
	}
	return profile, nil
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

var _ port.SocialSource = (*EFPClient)(nil)
