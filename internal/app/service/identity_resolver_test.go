package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"address_vision/internal/domain/entity"
	"address_vision/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAddressIsAcceptedWithoutLookups(t *testing.T) {
	names := newFakeNames()
	names.reverse[strings.ToLower(vitalikAddr)] = "vitalik.eth"
	r := NewIdentityResolver(names, &fakeAvatars{}, logger.NewNop())

	id, err := r.Resolve(context.Background(), entity.CanonicalQuery{Kind: entity.QueryAddress, Value: vitalikAddr})
	require.NoError(t, err)
	assert.Equal(t, vitalikAddr, id.Address)
	assert.Equal(t, "0xd8dA...6045", id.DisplayName)
	assert.Equal(t, int32(0), atomic.LoadInt32(&names.calls))
}

func TestEnrichUsesReverseNameAndAvatar(t *testing.T) {
	names := newFakeNames()
	names.reverse[strings.ToLower(vitalikAddr)] = "vitalik.eth"
	avatars := &fakeAvatars{urls: map[string]string{"vitalik.eth": "https://avatar/v"}}
	r := NewIdentityResolver(names, avatars, logger.NewNop())

	id := r.Enrich(context.Background(), vitalikAddr)
	assert.Equal(t, vitalikAddr, id.Address)
	assert.Equal(t, "vitalik.eth", id.DisplayName)
	assert.Equal(t, "https://avatar/v", id.AvatarURL)
}

func TestEnrichIsBestEffort(t *testing.T) {
	names := newFakeNames()
	names.err = errors.New("connection refused")
	r := NewIdentityResolver(names, &fakeAvatars{err: errors.New("boom")}, logger.NewNop())

	id := r.Enrich(context.Background(), vitalikAddr)
	assert.Equal(t, vitalikAddr, id.Address)
	assert.Equal(t, "0xd8dA...6045", id.DisplayName)
	assert.Empty(t, id.AvatarURL)
	assert.Empty(t, id.SourceEnsName)
}

func TestResolveName(t *testing.T) {
	names := newFakeNames()
	names.forward["vitalik.eth"] = vitalikAddr
	r := NewIdentityResolver(names, &fakeAvatars{err: errors.New("avatar service down")}, logger.NewNop())

	id, err := r.Resolve(context.Background(), entity.CanonicalQuery{Kind: entity.QueryEnsName, Value: "vitalik.eth"})
	require.NoError(t, err)
	assert.Equal(t, vitalikAddr, id.Address)
	assert.Equal(t, "vitalik.eth", id.DisplayName)
	assert.Empty(t, id.AvatarURL, "avatar failures never fail resolution")
}

func TestResolveUnknownNameIsNotFound(t *testing.T) {
	r := NewIdentityResolver(newFakeNames(), nil, logger.NewNop())

	_, err := r.Resolve(context.Background(), entity.CanonicalQuery{Kind: entity.QueryEnsName, Value: "doesnotexist12345.eth"})
	assert.ErrorIs(t, err, entity.ErrNotFound)
	var resErr *entity.ResolutionError
	assert.False(t, errors.As(err, &resErr))
}

func TestResolveBackendFailureIsResolutionError(t *testing.T) {
	names := newFakeNames()
	names.err = errors.New("timeout")
	r := NewIdentityResolver(names, nil, logger.NewNop())

	_, err := r.Resolve(context.Background(), entity.CanonicalQuery{Kind: entity.QueryEnsName, Value: "vitalik.eth"})
	var resErr *entity.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "vitalik.eth", resErr.Query)
	assert.NotErrorIs(t, err, entity.ErrNotFound)
}

func TestResolveInvalidQuery(t *testing.T) {
	r := NewIdentityResolver(newFakeNames(), nil, logger.NewNop())
	_, err := r.Resolve(context.Background(), entity.CanonicalQuery{})
	assert.ErrorIs(t, err, entity.ErrInvalidQuery)
}
