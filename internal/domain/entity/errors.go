package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery is returned when input does not normalize to an address or a name.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrNotFound means a well-formed name has no resolvable address.
	ErrNotFound = errors.New("identity not found")
	// ErrNoData means a source answered but holds nothing for the address.
	ErrNoData = errors.New("no data")
	// ErrStaleGeneration is returned for writes belonging to a superseded query.
	ErrStaleGeneration = errors.New("stale generation")
)

// ResolutionError is a transient failure of the resolution backend.
type ResolutionError struct {
	Query string
	Err   error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.Query, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// SourceError is returned by source adapters when an upstream call fails.
type SourceError struct {
	Source     SourceName
	StatusCode int
	Err        error
}

func (e *SourceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: http status %d: %v", e.Source, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
