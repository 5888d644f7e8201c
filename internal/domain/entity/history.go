package entity

import "time"

// SearchHistoryEntry is one previously resolved address.
type SearchHistoryEntry struct {
	Address   string    `json:"address"`
	EnsName   string    `json:"ensName,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
