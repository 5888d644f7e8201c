package port

import "context"

// NameResolver resolves names to addresses and back.
type NameResolver interface {
	// ResolveName returns the checksummed address for name, or entity.ErrNotFound if none is set.
	ResolveName(ctx context.Context, name string) (string, error)

	// LookupAddress returns the primary name of address, or an empty string if none is set.
	LookupAddress(ctx context.Context, address string) (string, error)
}

// AvatarFetcher looks up the avatar image of a name.
type AvatarFetcher interface {
	// FetchAvatar returns the avatar URL, or an empty string if the name has no avatar.
	FetchAvatar(ctx context.Context, name string) (string, error)
}
