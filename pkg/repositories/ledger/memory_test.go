package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regalspin/gamepanel/pkg/entities"
)

func TestGetWalletNotFound(t *testing.T) {
	repo := NewMemoryRepository()

	_, err := repo.GetWallet(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestSaveAndGetWallet(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.SaveWallet(ctx, &entities.Wallet{UserID: "u1", Balance: 100}))

	wallet, err := repo.GetWallet(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), wallet.Balance)
	assert.False(t, wallet.LastUpdated.IsZero(), "LastUpdated should be set on save")
}

func TestAdjustBalance(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.SaveWallet(ctx, &entities.Wallet{UserID: "u1", Balance: 100}))

	require.NoError(t, repo.AdjustBalance(ctx, "u1", -40))
	require.NoError(t, repo.AdjustBalance(ctx, "u1", 15))

	wallet, err := repo.GetWallet(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(75), wallet.Balance)
}

func TestAdjustBalanceRefusesNegative(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.SaveWallet(ctx, &entities.Wallet{UserID: "u1", Balance: 30}))

	err := repo.AdjustBalance(ctx, "u1", -31)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// Balance must be untouched after a refused adjustment
	wallet, err := repo.GetWallet(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(30), wallet.Balance)
}

func TestAdjustBalanceMissingWallet(t *testing.T) {
	repo := NewMemoryRepository()

	err := repo.AdjustBalance(context.Background(), "nobody", 10)
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestTransfer(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.SaveWallet(ctx, &entities.Wallet{UserID: "sender", Balance: 50}))
	require.NoError(t, repo.SaveWallet(ctx, &entities.Wallet{UserID: "receiver", Balance: 5}))

	require.NoError(t, repo.Transfer(ctx, "sender", "receiver", 20))

	from, err := repo.GetWallet(ctx, "sender")
	require.NoError(t, err)
	to, err := repo.GetWallet(ctx, "receiver")
	require.NoError(t, err)
	assert.Equal(t, int64(30), from.Balance)
	assert.Equal(t, int64(25), to.Balance)
}

func TestTransferInsufficientFunds(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.SaveWallet(ctx, &entities.Wallet{UserID: "sender", Balance: 10}))
	require.NoError(t, repo.SaveWallet(ctx, &entities.Wallet{UserID: "receiver", Balance: 0}))

	err := repo.Transfer(ctx, "sender", "receiver", 11)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// Neither side may move on a refused transfer
	from, _ := repo.GetWallet(ctx, "sender")
	to, _ := repo.GetWallet(ctx, "receiver")
	assert.Equal(t, int64(10), from.Balance)
	assert.Equal(t, int64(0), to.Balance)
}

func TestTransferMissingRecipient(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.SaveWallet(ctx, &entities.Wallet{UserID: "sender", Balance: 10}))

	err := repo.Transfer(ctx, "sender", "nobody", 5)
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestSaveCredential(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.GetAccount(ctx, "u1", "g1")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	require.NoError(t, repo.SaveCredential(ctx, "u1", "g1", "first"))
	account, err := repo.GetAccount(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.Equal(t, "first", account.Password)

	// Replacing the credential keeps the rest of the account state
	require.NoError(t, repo.SetFreePlayRedeemed(ctx, "u1", "g1"))
	require.NoError(t, repo.SaveCredential(ctx, "u1", "g1", "second"))

	account, err = repo.GetAccount(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.Equal(t, "second", account.Password)
	assert.True(t, account.FreePlayRedeemed)
}

func TestSetFreePlayRedeemedIsMonotonic(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.SaveCredential(ctx, "u1", "g1", "pass"))
	require.NoError(t, repo.SetFreePlayRedeemed(ctx, "u1", "g1"))
	require.NoError(t, repo.SetFreePlayRedeemed(ctx, "u1", "g1"))

	account, err := repo.GetAccount(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.True(t, account.FreePlayRedeemed)
}

func TestListAccounts(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.SaveCredential(ctx, "u1", "g2", "b"))
	require.NoError(t, repo.SaveCredential(ctx, "u1", "g1", "a"))
	require.NoError(t, repo.SaveCredential(ctx, "u2", "g1", "c"))

	accounts, err := repo.ListAccounts(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "g1", accounts[0].GameID)
	assert.Equal(t, "g2", accounts[1].GameID)
}

func TestRecordCashAddKeepsTwoMostRecent(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.RecordCashAdd(ctx, "u1", "g1", 10))
	require.NoError(t, repo.RecordCashAdd(ctx, "u1", "g1", 20))
	require.NoError(t, repo.RecordCashAdd(ctx, "u1", "g1", 30))

	adds, err := repo.GetCashAdds(ctx, "u1", "g1")
	require.NoError(t, err)
	require.Len(t, adds, 2)
	assert.Equal(t, int64(20), adds[0].Amount)
	assert.Equal(t, int64(30), adds[1].Amount)
}

func TestHistoryNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	for _, action := range []string{"Account Created", "Deposit Approved", "Redeem Approved"} {
		require.NoError(t, repo.AddHistory(ctx, &entities.HistoryEntry{
			UserID: "u1",
			Action: action,
		}))
	}

	entries, err := repo.GetHistory(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Redeem Approved", entries[0].Action)
	assert.Equal(t, "Deposit Approved", entries[1].Action)
	assert.NotEmpty(t, entries[0].ID, "Entries should get generated ids")
}

func TestGetHistorySince(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	old := &entities.HistoryEntry{UserID: "u1", Action: "Account Created", Timestamp: time.Now().Add(-time.Hour)}
	recent := &entities.HistoryEntry{UserID: "u2", Action: "Deposit Approved", Timestamp: time.Now()}
	require.NoError(t, repo.AddHistory(ctx, old))
	require.NoError(t, repo.AddHistory(ctx, recent))

	entries, err := repo.GetHistorySince(ctx, time.Now().Add(-time.Minute), "", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Deposit Approved", entries[0].Action)
}

func TestGetHistorySinceIDCursor(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	// Three entries sharing one timestamp, as second-resolution storage
	// produces under load
	shared := time.Now().Truncate(time.Second)
	ids := []string{"a1", "b2", "c3"}
	for _, id := range ids {
		entry := &entities.HistoryEntry{ID: id, UserID: "u1", Action: "Deposit Approved", Timestamp: shared}
		require.NoError(t, repo.AddHistory(ctx, entry))
	}

	first, err := repo.GetHistorySince(ctx, shared, "", 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "a1", first[0].ID)
	assert.Equal(t, "b2", first[1].ID)

	// Paging from the last seen id must advance past the tie
	second, err := repo.GetHistorySince(ctx, shared, first[1].ID, 2)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "c3", second[0].ID)

	// And past the final entry it must come back empty
	rest, err := repo.GetHistorySince(ctx, shared, second[0].ID, 2)
	require.NoError(t, err)
	assert.Empty(t, rest)
}
