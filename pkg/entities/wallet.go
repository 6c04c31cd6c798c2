package entities

import (
	"time"
)

// Wallet represents a player's internal currency balance
type Wallet struct {
	UserID      string    // Identity-provider user ID
	Balance     int64     // Current balance in whole dollars
	LastUpdated time.Time // When the wallet was last updated
}

// HistoryEntry is a write-once audit record for the player's activity log.
// Entries are never mutated or deleted; RequestID ties an entry back to the
// request whose completion produced it.
type HistoryEntry struct {
	ID        string    // Unique identifier
	UserID    string    // Owning user
	RequestID string    // Request that produced this entry, empty for P2P rows
	Action    string    // Human-readable action, e.g. "Deposit Approved"
	Details   Details   // Type-specific context
	IsError   bool      // True for declined/failed outcomes
	Timestamp time.Time // When the entry was written
}

// Details carries the display context attached to a history entry.
type Details struct {
	Game         string `json:"game,omitempty"`
	Amount       int64  `json:"amount,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Counterparty string `json:"counterparty,omitempty"`
}

// CashAdd records one approved deposit into external game software.
// Only the two most recent adds per (user, game) are retained.
type CashAdd struct {
	Amount int64     `json:"amount"`
	Date   time.Time `json:"date"`
}
