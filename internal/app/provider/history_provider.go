package provider

import (
	"strings"
	"sync"

	"address_vision/internal/app/port"
	"address_vision/internal/domain/entity"
)

type historyProviderImpl struct {
	mu         sync.RWMutex
	entries    []entity.SearchHistoryEntry
	maxEntries int
	logger     port.Logger
}

// NewHistoryProvider creates an in-memory search history keeping at most maxEntries addresses.
func NewHistoryProvider(maxEntries int, logger port.Logger) port.HistoryProvider {
	return &historyProviderImpl{maxEntries: maxEntries, logger: logger}
}

// Record moves entry to the front, replacing any entry for the same address.
func (p *historyProviderImpl) Record(entry entity.SearchHistoryEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	kept := make([]entity.SearchHistoryEntry, 0, len(p.entries)+1)
	kept = append(kept, entry)
	for _, e := range p.entries {
		if !strings.EqualFold(e.Address, entry.Address) {
			kept = append(kept, e)
		}
	}
	if p.maxEntries > 0 && len(kept) > p.maxEntries {
		kept = kept[:p.maxEntries]
	}
	p.entries = kept
	p.logger.Debug("Search history updated", "address", entry.Address, "size", len(kept))
}

// List returns the entries, most recent first.
func (p *historyProviderImpl) List() []entity.SearchHistoryEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]entity.SearchHistoryEntry(nil), p.entries...)
}

// Remove deletes the entry for address and reports whether it existed.
func (p *historyProviderImpl) Remove(address string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, e := range p.entries {
		if strings.EqualFold(e.Address, address) {
			p.entries = append(p.entries[:i:i], p.entries[i+1:]...)
			return true
		}
	}
	return false
}

// RecordIdentityEvents returns an event handler that appends resolved identities to history.
func RecordIdentityEvents(history port.HistoryProvider) port.IdentityEventHandler {
	return func(event entity.IdentityResolvedEvent) {
		history.Record(entity.SearchHistoryEntry{
			Address:   event.Address,
			EnsName:   event.EnsName,
			Timestamp: event.ResolvedAt,
		})
	}
}
