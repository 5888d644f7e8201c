package service

import (
	"errors"

	"address_vision/internal/domain/entity"
)

// InvalidQueryHint is shown inline when input is neither an address nor a name.
const InvalidQueryHint = "Enter a valid Ethereum address or ENS name"

// ProjectionInput is the combined resolution and source progress of the current generation.
type ProjectionInput struct {
	Generation uint64
	Submitted  bool
	Query      string
	Hint       string
	Identity   *entity.ResolvedIdentity
	ResolveErr error
	Statuses   []entity.SourceStatus
}

// ProjectViewState maps resolution and source progress onto a single view state.
// Source failures never escalate: once an identity is known the view is Loaded.
func ProjectViewState(in ProjectionInput) entity.ViewState {
	v := entity.ViewState{Kind: entity.ViewIdle, Query: in.Query, Hint: in.Hint, Generation: in.Generation}
	if !in.Submitted {
		return v
	}

	switch {
	case in.ResolveErr != nil && errors.Is(in.ResolveErr, entity.ErrNotFound):
		v.Kind = entity.ViewNotFound
	case in.ResolveErr != nil:
		v.Kind = entity.ViewError
		v.Error = in.ResolveErr.Error()
	case in.Identity != nil:
		v.Kind = entity.ViewLoaded
		identity := *in.Identity
		v.Identity = &identity
		for _, s := range in.Statuses {
			switch s {
			case entity.StatusPending:
				v.PendingSources++
			case entity.StatusFailed:
				v.FailedSources++
			}
		}
	default:
		v.Kind = entity.ViewResolving
	}
	return v
}
