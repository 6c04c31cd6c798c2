package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/regalspin/gamepanel/pkg/entities"
	"github.com/google/uuid"
)

var (
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrAccountNotFound   = errors.New("game account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

type accountKey struct {
	userID string
	gameID string
}

// MemoryRepository implements Repository using in-memory storage
type MemoryRepository struct {
	wallets  map[string]*entities.Wallet
	accounts map[accountKey]*entities.GameAccount
	cashAdds map[accountKey][]entities.CashAdd
	history  map[string][]*entities.HistoryEntry
	mu       sync.RWMutex
}

// NewMemoryRepository creates a new in-memory ledger repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		wallets:  make(map[string]*entities.Wallet),
		accounts: make(map[accountKey]*entities.GameAccount),
		cashAdds: make(map[accountKey][]entities.CashAdd),
		history:  make(map[string][]*entities.HistoryEntry),
	}
}

// GetWallet retrieves a wallet by user ID
func (r *MemoryRepository) GetWallet(ctx context.Context, userID string) (*entities.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wallet, exists := r.wallets[userID]
	if !exists {
		return nil, ErrWalletNotFound
	}

	// Return a copy to prevent concurrent modification
	walletCopy := *wallet
	return &walletCopy, nil
}

// SaveWallet creates or updates a wallet
func (r *MemoryRepository) SaveWallet(ctx context.Context, wallet *entities.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	wallet.LastUpdated = time.Now()

	walletCopy := *wallet
	r.wallets[wallet.UserID] = &walletCopy

	return nil
}

// AdjustBalance atomically adds delta to a wallet's balance
func (r *MemoryRepository) AdjustBalance(ctx context.Context, userID string, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	wallet, exists := r.wallets[userID]
	if !exists {
		return ErrWalletNotFound
	}
	if wallet.Balance+delta < 0 {
		return ErrInsufficientFunds
	}

	wallet.Balance += delta
	wallet.LastUpdated = time.Now()
	return nil
}

// Transfer atomically moves amount from one wallet to another
func (r *MemoryRepository) Transfer(ctx context.Context, fromUserID, toUserID string, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	from, exists := r.wallets[fromUserID]
	if !exists {
		return ErrWalletNotFound
	}
	to, exists := r.wallets[toUserID]
	if !exists {
		return ErrWalletNotFound
	}
	if from.Balance < amount {
		return ErrInsufficientFunds
	}

	now := time.Now()
	from.Balance -= amount
	from.LastUpdated = now
	to.Balance += amount
	to.LastUpdated = now
	return nil
}

// GetAccount retrieves the stored state for a (user, game) pair
func (r *MemoryRepository) GetAccount(ctx context.Context, userID, gameID string) (*entities.GameAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, exists := r.accounts[accountKey{userID, gameID}]
	if !exists {
		return nil, ErrAccountNotFound
	}

	accountCopy := *account
	return &accountCopy, nil
}

// ListAccounts retrieves all game accounts for a user
func (r *MemoryRepository) ListAccounts(ctx context.Context, userID string) ([]*entities.GameAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var accounts []*entities.GameAccount
	for key, account := range r.accounts {
		if key.userID == userID {
			accountCopy := *account
			accounts = append(accounts, &accountCopy)
		}
	}

	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].GameID < accounts[j].GameID
	})
	return accounts, nil
}

// SaveCredential creates or replaces the credential for a (user, game) pair
func (r *MemoryRepository) SaveCredential(ctx context.Context, userID, gameID, password string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account := r.getOrCreateAccountLocked(userID, gameID)
	account.Password = password
	account.UpdatedAt = time.Now()
	return nil
}

// SetFreePlayRedeemed marks the one-time free play as claimed
func (r *MemoryRepository) SetFreePlayRedeemed(ctx context.Context, userID, gameID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account := r.getOrCreateAccountLocked(userID, gameID)
	account.FreePlayRedeemed = true
	account.UpdatedAt = time.Now()
	return nil
}

// RecordCashAdd appends an approved deposit, keeping the two most recent
func (r *MemoryRepository) RecordCashAdd(ctx context.Context, userID, gameID string, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := accountKey{userID, gameID}
	adds := append(r.cashAdds[key], entities.CashAdd{Amount: amount, Date: time.Now()})
	if len(adds) > 2 {
		adds = adds[len(adds)-2:]
	}
	r.cashAdds[key] = adds
	return nil
}

// GetCashAdds retrieves the retained recent deposits for a (user, game) pair
func (r *MemoryRepository) GetCashAdds(ctx context.Context, userID, gameID string) ([]entities.CashAdd, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adds := r.cashAdds[accountKey{userID, gameID}]
	result := make([]entities.CashAdd, len(adds))
	copy(result, adds)
	return result, nil
}

// AddHistory appends a write-once history entry
func (r *MemoryRepository) AddHistory(ctx context.Context, entry *entities.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	entryCopy := *entry
	r.history[entry.UserID] = append(r.history[entry.UserID], &entryCopy)
	return nil
}

// GetHistory retrieves recent history entries for a user, newest first
func (r *MemoryRepository) GetHistory(ctx context.Context, userID string, limit int) ([]*entities.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.history[userID]
	var result []*entities.HistoryEntry
	for i := len(entries) - 1; i >= 0 && len(result) < limit; i-- {
		entryCopy := *entries[i]
		result = append(result, &entryCopy)
	}
	return result, nil
}

// GetHistorySince retrieves entries written at or after since, ordered by
// (timestamp, id), skipping the boundary timestamp up to afterID
func (r *MemoryRepository) GetHistorySince(ctx context.Context, since time.Time, afterID string, limit int) ([]*entities.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*entities.HistoryEntry
	for _, entries := range r.history {
		for _, entry := range entries {
			if entry.Timestamp.Before(since) {
				continue
			}
			if entry.Timestamp.Equal(since) && entry.ID <= afterID {
				continue
			}
			entryCopy := *entry
			result = append(result, &entryCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].ID < result[j].ID
		}
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// getOrCreateAccountLocked returns the account for a (user, game) pair,
// creating it if absent. Caller must hold the write lock.
func (r *MemoryRepository) getOrCreateAccountLocked(userID, gameID string) *entities.GameAccount {
	key := accountKey{userID, gameID}
	account, exists := r.accounts[key]
	if !exists {
		account = &entities.GameAccount{UserID: userID, GameID: gameID}
		r.accounts[key] = account
	}
	return account
}
