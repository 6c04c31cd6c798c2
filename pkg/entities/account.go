package entities

import (
	"time"
)

// GameAccount holds the stored state for one (user, game) pair: the game
// software credential and the one-time free-play flag. Absence of a
// credential means the account has not been set up yet.
type GameAccount struct {
	UserID           string
	GameID           string
	Password         string // Stored game-software credential, empty if not set up
	FreePlayRedeemed bool   // Monotonic: once true, never cleared
	UpdatedAt        time.Time
}

// User carries the identity fields the panel needs. Sourced from the
// identity provider; only UserID is used as a storage key.
type User struct {
	ID       string
	PlayerID string // Public-facing player account number
	Name     string
	Email    string
}

// Game identifies one external game-software title on the panel.
type Game struct {
	ID   string
	Name string
}
