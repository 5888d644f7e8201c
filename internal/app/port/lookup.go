package port

import (
	"context"

	"address_vision/internal/domain/entity"
)

// LookupSnapshot is a consistent copy of all observable state slices.
type LookupSnapshot struct {
	View     entity.ViewState                                       `json:"view"`
	Contract entity.SourceResult[entity.ContractInfo]               `json:"contract"`
	Tokens   map[uint64]entity.SourceResult[[]entity.TokenHolding] `json:"tokens"`
	Nfts     map[uint64]entity.SourceResult[[]entity.NftHolding]   `json:"nfts"`
	Poaps    entity.SourceResult[[]entity.PoapHolding]              `json:"poaps"`
	Social   entity.SourceResult[entity.SocialProfile]              `json:"social"`
	Balance  entity.AggregatedBalance                               `json:"balance"`
	NftCard  entity.HoldingsSummary[entity.NftHolding]              `json:"nftCard"`
	PoapCard entity.HoldingsSummary[entity.PoapHolding]             `json:"poapCard"`
}

// LookupService drives a lookup session.
type LookupService interface {
	// Submit starts a lookup for raw input and returns the view state right after submission.
	Submit(ctx context.Context, raw string) entity.ViewState

	// Snapshot returns the current state of every slice.
	Snapshot() LookupSnapshot

	// Retry refetches failed sources of the current generation.
	Retry(ctx context.Context) entity.ViewState
}
