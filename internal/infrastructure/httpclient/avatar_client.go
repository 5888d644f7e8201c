package httpclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"address_vision/internal/app/port"
	"address_vision/internal/domain/entity"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const avatarSource entity.SourceName = "ens-avatar"

// AvatarClient resolves ENS avatars through the ENS metadata service.
type AvatarClient struct {
	baseClient
}

// NewAvatarClient creates an avatar client rooted at baseURL, e.g. https://metadata.ens.domains/mainnet/avatar.
func NewAvatarClient(baseURL string, timeout time.Duration, logger *zap.Logger) *AvatarClient {
	return &AvatarClient{baseClient: newBaseClient(avatarSource, baseURL, timeout, logger, "AvatarClient")}
}

// FetchAvatar implements port.AvatarFetcher. The service answers with the image itself;
// any other content type, such as its JSON "no avatar" message, means the name has no avatar.
func (c *AvatarClient) FetchAvatar(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", nil
	}
	avatarURL := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(name))

	resp, err := c.do(ctx, fasthttp.MethodGet, avatarURL, map[string]string{"Accept": "*/*"}, nil)
	if err != nil {
		return "", err
	}
	switch {
	case resp.StatusCode == fasthttp.StatusNotFound:
		return "", nil
	case resp.StatusCode != fasthttp.StatusOK:
		return "", &entity.SourceError{Source: avatarSource, StatusCode: resp.StatusCode, Err: fmt.Errorf("avatar of %s unavailable", name)}
	case !strings.HasPrefix(strings.ToLower(resp.ContentType), "image/"):
		c.logger.Debug("No avatar set",
			zap.String("name", name),
			zap.String("content_type", resp.ContentType),
			zap.ByteString("message", truncate(resp.Body)))
		return "", nil
	}
	return avatarURL, nil
}

var _ port.AvatarFetcher = (*AvatarClient)(nil)
