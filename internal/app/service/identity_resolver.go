package service

import (
	"context"
	"errors"
	"fmt"

	"address_vision/internal/app/port"
	"address_vision/internal/domain/entity"
	"address_vision/internal/infrastructure/metrics"

	"golang.org/x/sync/errgroup"
)

// IdentityResolver turns a CanonicalQuery into a ResolvedIdentity. It never retries; callers resubmit.
type IdentityResolver struct {
	names   port.NameResolver
	avatars port.AvatarFetcher
	logger  port.Logger
}

// NewIdentityResolver creates a resolver over a name backend and an avatar service.
func NewIdentityResolver(names port.NameResolver, avatars port.AvatarFetcher, logger port.Logger) *IdentityResolver {
	return &IdentityResolver{names: names, avatars: avatars, logger: logger}
}

// Resolve returns the identity of q. The error is entity.ErrNotFound for a name without an address,
// a *entity.ResolutionError when the backend failed, or entity.ErrInvalidQuery.
// An address is accepted as is and never yields an error; its name and avatar come from Enrich.
func (r *IdentityResolver) Resolve(ctx context.Context, q entity.CanonicalQuery) (entity.ResolvedIdentity, error) {
	switch q.Kind {
	case entity.QueryAddress:
		metrics.ResolutionsTotal.WithLabelValues(q.Kind.String(), "resolved").Inc()
		return entity.NewResolvedIdentity(q.Value, "", ""), nil
	case entity.QueryEnsName:
		identity, err := r.resolveName(ctx, q.Value)
		metrics.ResolutionsTotal.WithLabelValues(q.Kind.String(), outcome(err)).Inc()
		return identity, err
	default:
		return entity.ResolvedIdentity{}, entity.ErrInvalidQuery
	}
}

// Enrich looks up the reverse name of address and then its avatar. Both are best-effort:
// failures leave the identity with the shortened address as display name.
func (r *IdentityResolver) Enrich(ctx context.Context, address string) entity.ResolvedIdentity {
	name, err := r.names.LookupAddress(ctx, address)
	if err != nil {
		r.logger.Warn("Reverse name lookup failed", "address", address, "error", err)
		name = ""
	}
	return entity.NewResolvedIdentity(address, name, r.avatar(ctx, name))
}

func (r *IdentityResolver) resolveName(ctx context.Context, name string) (entity.ResolvedIdentity, error) {
	var (
		address string
		avatar  string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		address, err = r.names.ResolveName(gctx, name)
		return err
	})
	g.Go(func() error {
		avatar = r.avatar(gctx, name)
		return nil
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return entity.ResolvedIdentity{}, fmt.Errorf("resolve %s: %w", name, entity.ErrNotFound)
		}
		return entity.ResolvedIdentity{}, &entity.ResolutionError{Query: name, Err: err}
	}
	return entity.NewResolvedIdentity(address, name, avatar), nil
}

// avatar never fails: errors and missing avatars both yield an empty URL.
func (r *IdentityResolver) avatar(ctx context.Context, name string) string {
	if name == "" || r.avatars == nil {
		return ""
	}
	url, err := r.avatars.FetchAvatar(ctx, name)
	if err != nil {
		r.logger.Debug("Avatar lookup failed", "name", name, "error", err)
		return ""
	}
	return url
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "resolved"
	case errors.Is(err, entity.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
