package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"address_vision/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEFPClientCombinesStatsAndAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/" + testAddress + "/stats":
			_, _ = io.WriteString(w, `{"followers_count":"1200","following_count":35}`)
		case "/users/" + testAddress + "/account":
			_, _ = io.WriteString(w, `{"address":"`+testAddress+`","ens":{"name":"vitalik.eth","avatar":"https://avatar/v.png",
				"records":{"com.twitter":"VitalikButerin","url":"https://vitalik.ca","email":""}}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewEFPClient(providerConfig(srv.URL), zap.NewNop())
	profile, err := c.GetSocialProfile(context.Background(), testAddress)
	require.NoError(t, err)
	assert.Equal(t, 1200, profile.Followers)
	assert.Equal(t, 35, profile.Following)
	assert.Equal(t, "vitalik.eth", profile.EnsName)
	assert.Equal(t, map[string]string{"com.twitter": "VitalikButerin", "url": "https://vitalik.ca"}, profile.Records)
}

func TestEFPClientAccountIsOptional(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/users/"+testAddress+"/stats" {
			_, _ = io.WriteString(w, `{"followers_count":0,"following_count":0}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	profile, err := NewEFPClient(providerConfig(srv.URL), zap.NewNop()).GetSocialProfile(context.Background(), testAddress)
	require.NoError(t, err)
	assert.True(t, profile.IsEmpty())
}

func TestEFPClientUnknownUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewEFPClient(providerConfig(srv.URL), zap.NewNop()).GetSocialProfile(context.Background(), testAddress)
	assert.ErrorIs(t, err, entity.ErrNoData)
}

func TestAvatarClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/vitalik.eth":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
		case "/noavatar.eth":
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, `{"message":"There is no avatar set under given address"}`)
		case "/gone.eth":
			w.WriteHeader(http.StatusNotFound)
		case "/landing.eth":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = io.WriteString(w, "<html><body>ENS metadata service</body></html>")
		case "/svg.eth":
			w.Header().Set("Content-Type", "image/svg+xml")
			_, _ = io.WriteString(w, "<svg/>")
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := NewAvatarClient(srv.URL+"/", time.Second, zap.NewNop())
	ctx := context.Background()

	url, err := c.FetchAvatar(ctx, "vitalik.eth")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/vitalik.eth", url)

	url, err = c.FetchAvatar(ctx, "noavatar.eth")
	require.NoError(t, err)
	assert.Empty(t, url)

	url, err = c.FetchAvatar(ctx, "gone.eth")
	require.NoError(t, err)
	assert.Empty(t, url)

	url, err = c.FetchAvatar(ctx, "landing.eth")
	require.NoError(t, err)
	assert.Empty(t, url, "only image responses are avatars")

	url, err = c.FetchAvatar(ctx, "svg.eth")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/svg.eth", url)

	_, err = c.FetchAvatar(ctx, "broken.eth")
	require.Error(t, err)

	url, err = c.FetchAvatar(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestDEXScreenerClientAcceptsBothShapes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tokens/v1/ethereum/0xa,0xb":
			_, _ = io.WriteString(w, `[{"chainId":"ethereum","baseToken":{"address":"0xa"},"priceUsd":"1.5","liquidity":{"usd":1000}}]`)
		case "/tokens/v1/base/0xa":
			_, _ = io.WriteString(w, `{"schemaVersion":"1.0.0","pairs":[{"chainId":"base","baseToken":{"address":"0xa"},"priceUsd":"2"}]}`)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	c := NewDEXScreenerClient(srv.URL, time.Second, zap.NewNop(), 2)
	ctx := context.Background()

	pairs, err := c.GetTokenPairsByAddresses(ctx, "ethereum", []string{"0xa", "0xb"})
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "1.5", pairs[0].PriceUsd)
	require.NotNil(t, pairs[0].Liquidity)

	pairs, err = c.GetTokenPairsByAddresses(ctx, "base", []string{"0xa"})
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Nil(t, pairs[0].Liquidity)

	_, err = c.GetTokenPairsByAddresses(ctx, "ethereum", []string{"0xa", "0xb", "0xc"})
	require.Error(t, err, "batch above the per-request maximum")

	_, err = c.GetTokenPairsByAddresses(ctx, "ethereum", nil)
	require.Error(t, err)

	_, err = c.GetTokenPairsByAddresses(ctx, "solana", []string{"0xa"})
	require.Error(t, err)
}
