package entity

import (
	"time"

	"github.com/google/uuid"
)

// ResolvedIdentity is the address under inspection together with its optional ENS name and avatar.
// It is replaced wholesale on every new query.
type ResolvedIdentity struct {
	Address       string `json:"address"`
	DisplayName   string `json:"displayName"`
	AvatarURL     string `json:"avatarUrl,omitempty"`
	SourceEnsName string `json:"ensName,omitempty"`
}

// NewResolvedIdentity builds an identity, deriving the display name from ensName or the shortened address.
func NewResolvedIdentity(address, ensName, avatarURL string) ResolvedIdentity {
	display := ensName
	if display == "" {
		display = ShortenAddress(address)
	}
	return ResolvedIdentity{
		Address:       address,
		DisplayName:   display,
		AvatarURL:     avatarURL,
		SourceEnsName: ensName,
	}
}

// ShortenAddress keeps the first 6 and the last 4 characters of an address.
func ShortenAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

// IdentityResolvedEvent is emitted once per generation when an identity has been resolved.
type IdentityResolvedEvent struct {
	ID         uuid.UUID `json:"id"`
	Address    string    `json:"address"`
	EnsName    string    `json:"ensName,omitempty"`
	Generation uint64    `json:"generation"`
	ResolvedAt time.Time `json:"resolvedAt"`
}

// NewIdentityResolvedEvent creates an event for identity with a fresh id.
func NewIdentityResolvedEvent(identity ResolvedIdentity, generation uint64, at time.Time) IdentityResolvedEvent {
	return IdentityResolvedEvent{
		ID:         uuid.New(),
		Address:    identity.Address,
		EnsName:    identity.SourceEnsName,
		Generation: generation,
		ResolvedAt: at,
	}
}
