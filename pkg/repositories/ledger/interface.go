package ledger

import (
	"context"
	"time"

	"github.com/regalspin/gamepanel/pkg/entities"
)

// Repository defines the interface for ledger data operations
type Repository interface {
	// GetWallet retrieves a wallet by user ID
	GetWallet(ctx context.Context, userID string) (*entities.Wallet, error)

	// SaveWallet creates or updates a wallet
	SaveWallet(ctx context.Context, wallet *entities.Wallet) error

	// AdjustBalance atomically adds delta to a wallet's balance. The update
	// is conditional: it fails with ErrInsufficientFunds if the result
	// would be negative, so callers never read-modify-write the balance.
	AdjustBalance(ctx context.Context, userID string, delta int64) error

	// Transfer atomically moves amount from one wallet to another
	Transfer(ctx context.Context, fromUserID, toUserID string, amount int64) error

	// GetAccount retrieves the stored state for a (user, game) pair;
	// returns ErrAccountNotFound when the account has never been written
	GetAccount(ctx context.Context, userID, gameID string) (*entities.GameAccount, error)

	// ListAccounts retrieves all game accounts for a user
	ListAccounts(ctx context.Context, userID string) ([]*entities.GameAccount, error)

	// SaveCredential creates or replaces the credential for a (user, game) pair
	SaveCredential(ctx context.Context, userID, gameID, password string) error

	// SetFreePlayRedeemed marks the one-time free play as claimed.
	// The flag is monotonic; there is no operation to clear it.
	SetFreePlayRedeemed(ctx context.Context, userID, gameID string) error

	// RecordCashAdd appends an approved deposit amount for a (user, game)
	// pair, retaining only the two most recent entries
	RecordCashAdd(ctx context.Context, userID, gameID string, amount int64) error

	// GetCashAdds retrieves the retained recent deposits for a (user, game) pair
	GetCashAdds(ctx context.Context, userID, gameID string) ([]entities.CashAdd, error)

	// AddHistory appends a write-once history entry
	AddHistory(ctx context.Context, entry *entities.HistoryEntry) error

	// GetHistory retrieves recent history entries for a user, newest first
	GetHistory(ctx context.Context, userID string, limit int) ([]*entities.HistoryEntry, error)

	// GetHistorySince retrieves history entries written at or after the
	// given time, across all users, ordered by (timestamp, id). Entries at
	// exactly the given time are skipped up to and including afterID, so a
	// caller paging through second-resolution timestamps always advances.
	// Pass an empty afterID to include the whole boundary second.
	GetHistorySince(ctx context.Context, since time.Time, afterID string, limit int) ([]*entities.HistoryEntry, error)
}
