package entity

import "time"

// SourceName identifies an external data source.
type SourceName string

const (
	SourceTokens   SourceName = "tokens"
	SourceNfts     SourceName = "nfts"
	SourcePoaps    SourceName = "poaps"
	SourceSocial   SourceName = "social"
	SourceContract SourceName = "contract"
)

// SourceStatus is the lifecycle state of a single (source, chain, address) fetch.
type SourceStatus int

const (
	StatusPending SourceStatus = iota
	StatusReady
	StatusFailed
	StatusEmpty
)

func (s SourceStatus) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	case StatusEmpty:
		return "empty"
	default:
		return "pending"
	}
}

// MarshalText renders the status by name in JSON payloads.
func (s SourceStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SourceResult holds exactly one state at a time. The only allowed transitions are
// Pending to Ready, Failed or Empty; a new generation resets every result to Pending.
type SourceResult[T any] struct {
	Status    SourceStatus `json:"status"`
	Data      T            `json:"data,omitempty"`
	FetchedAt time.Time    `json:"fetchedAt,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	Retryable bool         `json:"retryable,omitempty"`
}

func PendingResult[T any]() SourceResult[T] {
	return SourceResult[T]{Status: StatusPending}
}

func ReadyResult[T any](data T, fetchedAt time.Time) SourceResult[T] {
	return SourceResult[T]{Status: StatusReady, Data: data, FetchedAt: fetchedAt}
}

func FailedResult[T any](reason string, retryable bool, fetchedAt time.Time) SourceResult[T] {
	return SourceResult[T]{Status: StatusFailed, Reason: reason, Retryable: retryable, FetchedAt: fetchedAt}
}

func EmptyResult[T any](fetchedAt time.Time) SourceResult[T] {
	return SourceResult[T]{Status: StatusEmpty, FetchedAt: fetchedAt}
}

// IsTerminal reports whether the result has settled.
func (r SourceResult[T]) IsTerminal() bool {
	return r.Status != StatusPending
}

// CanTransitionTo reports whether moving to next respects the Pending-to-terminal rule.
func (r SourceResult[T]) CanTransitionTo(next SourceStatus) bool {
	return r.Status == StatusPending && next != StatusPending
}
