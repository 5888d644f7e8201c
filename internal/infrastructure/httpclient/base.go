package httpclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"address_vision/internal/domain/entity"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxLoggedBody caps response bodies copied into log fields.
const maxLoggedBody = 512

// baseClient holds the fasthttp plumbing shared by all API adapters.
type baseClient struct {
	client  *fasthttp.Client
	baseURL string
	timeout time.Duration
	logger  *zap.Logger
	source  entity.SourceName
}

func newBaseClient(source entity.SourceName, baseURL string, timeout time.Duration, logger *zap.Logger, name string) baseClient {
	return baseClient{
		client:  &fasthttp.Client{Name: "address_vision"},
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		logger:  logger.Named(name),
		source:  source,
	}
}

type httpResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// do executes a request honoring the context deadline, or the client timeout if ctx has none.
func (c *baseClient) do(ctx context.Context, method, requestURL string, headers map[string]string, body []byte) (httpResponse, error) {
	if err := ctx.Err(); err != nil {
		return httpResponse{}, err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(method)
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.DoTimeout(req, resp, c.timeout)
	}
	if err != nil {
		c.logger.Warn("Request failed", zap.String("url", redact(requestURL)), zap.Error(err))
		return httpResponse{}, &entity.SourceError{Source: c.source, Err: err}
	}

	out := httpResponse{
		StatusCode:  resp.StatusCode(),
		ContentType: string(resp.Header.ContentType()),
		Body:        append([]byte(nil), resp.Body()...),
	}
	return out, nil
}

// doJSON sends reqBody (if any) as JSON and decodes a 200 response into out.
func (c *baseClient) doJSON(ctx context.Context, method, requestURL string, headers map[string]string, reqBody, out interface{}) error {
	var payload []byte
	if reqBody != nil {
		var err error
		payload, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	c.logger.Debug("Requesting", zap.String("method", method), zap.String("url", redact(requestURL)))
	resp, err := c.do(ctx, method, requestURL, headers, payload)
	if err != nil {
		return err
	}

	if resp.StatusCode != fasthttp.StatusOK {
		c.logger.Warn("API request failed",
			zap.String("url", redact(requestURL)),
			zap.Int("statusCode", resp.StatusCode),
			zap.ByteString("responseBody", truncate(resp.Body)))
		return &entity.SourceError{
			Source:     c.source,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", strings.TrimSpace(string(truncate(resp.Body)))),
		}
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		c.logger.Error("Failed to unmarshal response",
			zap.String("url", redact(requestURL)),
			zap.ByteString("responseBody", truncate(resp.Body)),
			zap.Error(err))
		return &entity.SourceError{Source: c.source, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func truncate(b []byte) []byte {
	if len(b) > maxLoggedBody {
		return b[:maxLoggedBody]
	}
	return b
}

// redact hides path-embedded API keys (Alchemy puts the key in the URL path).
func redact(u string) string {
	const marker = "/data/v1/"
	i := strings.Index(u, marker)
	if i < 0 {
		return u
	}
	rest := u[i+len(marker):]
	j := strings.Index(rest, "/")
	if j < 0 {
		return u
	}
	return u[:i+len(marker)] + "***" + rest[j:]
}
