package entity

import "fmt"

// ViewStateKind is the top-level state presented to the user.
type ViewStateKind int

const (
	ViewIdle ViewStateKind = iota
	ViewResolving
	ViewLoaded
	ViewNotFound
	ViewError
)

func (k ViewStateKind) String() string {
	switch k {
	case ViewResolving:
		return "resolving"
	case ViewLoaded:
		return "loaded"
	case ViewNotFound:
		return "not_found"
	case ViewError:
		return "error"
	default:
		return "idle"
	}
}

func (k ViewStateKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ViewStateKind) UnmarshalText(text []byte) error {
	for _, candidate := range []ViewStateKind{ViewIdle, ViewResolving, ViewLoaded, ViewNotFound, ViewError} {
		if candidate.String() == string(text) {
			*k = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown view state %q", text)
}

// ViewState is the projection of resolution and source progress.
type ViewState struct {
	Kind           ViewStateKind     `json:"kind"`
	Query          string            `json:"query,omitempty"`
	Identity       *ResolvedIdentity `json:"identity,omitempty"`
	Hint           string            `json:"hint,omitempty"`
	Error          string            `json:"error,omitempty"`
	PendingSources int               `json:"pendingSources"`
	FailedSources  int               `json:"failedSources"`
	Generation     uint64            `json:"generation"`
}
