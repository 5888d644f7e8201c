package port

import "address_vision/internal/domain/entity"

// HistoryProvider keeps the search history.
type HistoryProvider interface {
	Record(entry entity.SearchHistoryEntry)
	List() []entity.SearchHistoryEntry
	Remove(address string) bool
}

// IdentityEventHandler consumes identity resolved events.
type IdentityEventHandler func(event entity.IdentityResolvedEvent)
