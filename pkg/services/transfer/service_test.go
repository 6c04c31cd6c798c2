package transfer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regalspin/gamepanel/internal/types"
	"github.com/regalspin/gamepanel/pkg/entities"
	ledgerRepo "github.com/regalspin/gamepanel/pkg/repositories/ledger"
)

func newTestService(t *testing.T) (*Service, *ledgerRepo.MemoryRepository) {
	t.Helper()

	ledger := ledgerRepo.NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, ledger.SaveWallet(ctx, &entities.Wallet{UserID: "alice", Balance: 100}))
	require.NoError(t, ledger.SaveWallet(ctx, &entities.Wallet{UserID: "bob", Balance: 10}))

	return NewService(ledger, nil), ledger
}

func TestSend(t *testing.T) {
	svc, ledger := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Send(ctx, "alice", "Alice", "bob", "Bob", 25))

	from, err := ledger.GetWallet(ctx, "alice")
	require.NoError(t, err)
	to, err := ledger.GetWallet(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(75), from.Balance)
	assert.Equal(t, int64(35), to.Balance)

	// Both sides get an audit entry naming the counterparty
	sent, err := ledger.GetHistory(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, "Sent", sent[0].Action)
	assert.Equal(t, int64(25), sent[0].Details.Amount)
	assert.Equal(t, "Bob", sent[0].Details.Counterparty)

	received, err := ledger.GetHistory(ctx, "bob", 10)
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "Received", received[0].Action)
	assert.Equal(t, "Alice", received[0].Details.Counterparty)
}

func TestSendBelowMinimum(t *testing.T) {
	svc, ledger := newTestService(t)
	ctx := context.Background()

	err := svc.Send(ctx, "alice", "Alice", "bob", "Bob", 1)
	assert.True(t, types.IsRequestError(err, types.ErrBelowMinimum), "expected BELOW_MINIMUM, got %v", err)

	from, _ := ledger.GetWallet(ctx, "alice")
	assert.Equal(t, int64(100), from.Balance)
}

func TestSendToSelf(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.Send(context.Background(), "alice", "Alice", "alice", "Alice", 10)
	assert.True(t, types.IsRequestError(err, types.ErrInvalidAmount))
}

func TestSendInsufficientFunds(t *testing.T) {
	svc, ledger := newTestService(t)
	ctx := context.Background()

	err := svc.Send(ctx, "bob", "Bob", "alice", "Alice", 11)
	assert.True(t, types.IsRequestError(err, types.ErrInsufficientFunds))

	// Nothing moved and nothing was recorded
	from, _ := ledger.GetWallet(ctx, "bob")
	to, _ := ledger.GetWallet(ctx, "alice")
	assert.Equal(t, int64(10), from.Balance)
	assert.Equal(t, int64(100), to.Balance)

	history, err := ledger.GetHistory(ctx, "bob", 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSendToMissingWallet(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.Send(context.Background(), "alice", "Alice", "nobody", "Nobody", 10)
	assert.True(t, types.IsRequestError(err, types.ErrWalletNotFound))
}
