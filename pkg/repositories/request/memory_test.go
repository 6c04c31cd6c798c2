package request

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regalspin/gamepanel/pkg/entities"
)

func newPendingRequest(t *testing.T, repo *MemoryRepository, userID, gameID string, reqType entities.RequestType) *entities.Request {
	t.Helper()

	req := &entities.Request{
		UserID:   userID,
		GameID:   gameID,
		GameName: "Test Game",
		Type:     reqType,
		Payload:  entities.TransactionPayload{Amount: 100},
	}
	require.NoError(t, repo.CreateRequest(context.Background(), req))
	return req
}

func TestCreateRequestAssignsDefaults(t *testing.T) {
	repo := NewMemoryRepository()

	req := &entities.Request{
		UserID:  "u1",
		GameID:  "g1",
		Type:    entities.RequestTypeSave,
		Payload: entities.SavePayload{Password: "pass"},
		// A caller cannot pre-resolve a request
		Status:    entities.RequestStatusApproved,
		Processed: true,
	}
	require.NoError(t, repo.CreateRequest(context.Background(), req))

	assert.NotEmpty(t, req.ID)
	assert.False(t, req.CreatedAt.IsZero())

	stored, err := repo.GetRequest(context.Background(), "u1", req.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.RequestStatusPending, stored.Status)
	assert.False(t, stored.Processed)
}

func TestGetRequestNotFound(t *testing.T) {
	repo := NewMemoryRepository()

	_, err := repo.GetRequest(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestListPendingOldestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	older := &entities.Request{
		UserID:    "u1",
		GameID:    "g1",
		Type:      entities.RequestTypeSave,
		CreatedAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, repo.CreateRequest(ctx, older))
	newer := newPendingRequest(t, repo, "u1", "g2", entities.RequestTypeAdd)

	pending, err := repo.ListPending(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, older.ID, pending[0].ID)
	assert.Equal(t, newer.ID, pending[1].ID)

	// Resolved requests drop out of the pending listing
	won, err := repo.MarkProcessed(ctx, "u1", newer.ID, entities.RequestStatusApproved)
	require.NoError(t, err)
	require.True(t, won)

	pending, err = repo.ListPending(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, older.ID, pending[0].ID)
}

func TestListUsersWithPending(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	newPendingRequest(t, repo, "u2", "g1", entities.RequestTypeAdd)
	newPendingRequest(t, repo, "u1", "g1", entities.RequestTypeSave)
	resolved := newPendingRequest(t, repo, "u3", "g1", entities.RequestTypeRedeem)

	won, err := repo.MarkProcessed(ctx, "u3", resolved.ID, entities.RequestStatusRejected)
	require.NoError(t, err)
	require.True(t, won)

	users, err := repo.ListUsersWithPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, users)
}

func TestHasPendingTransaction(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	// Credential requests don't count as transactions
	newPendingRequest(t, repo, "u1", "g1", entities.RequestTypeSave)
	busy, err := repo.HasPendingTransaction(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, busy)

	// A pending REDEEM on any game blocks the user
	redeem := newPendingRequest(t, repo, "u1", "g2", entities.RequestTypeRedeem)
	busy, err = repo.HasPendingTransaction(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, busy)

	// Other users are unaffected
	busy, err = repo.HasPendingTransaction(ctx, "u2")
	require.NoError(t, err)
	assert.False(t, busy)

	_, err = repo.MarkProcessed(ctx, "u1", redeem.ID, entities.RequestStatusRejected)
	require.NoError(t, err)
	busy, err = repo.HasPendingTransaction(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, busy)
}

func TestHasPendingForGame(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	newPendingRequest(t, repo, "u1", "g1", entities.RequestTypeReset)

	pending, err := repo.HasPendingForGame(ctx, "u1", "g1", entities.RequestTypeReset)
	require.NoError(t, err)
	assert.True(t, pending)

	pending, err = repo.HasPendingForGame(ctx, "u1", "g1", entities.RequestTypeSave)
	require.NoError(t, err)
	assert.False(t, pending, "Different type for the same game should not match")

	pending, err = repo.HasPendingForGame(ctx, "u1", "g2", entities.RequestTypeReset)
	require.NoError(t, err)
	assert.False(t, pending, "Same type for a different game should not match")
}

func TestMarkProcessedOnlyOnce(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	req := newPendingRequest(t, repo, "u1", "g1", entities.RequestTypeAdd)

	won, err := repo.MarkProcessed(ctx, "u1", req.ID, entities.RequestStatusApproved)
	require.NoError(t, err)
	assert.True(t, won)

	// The second completion must lose, and must not overwrite the status
	won, err = repo.MarkProcessed(ctx, "u1", req.ID, entities.RequestStatusRejected)
	require.NoError(t, err)
	assert.False(t, won)

	stored, err := repo.GetRequest(ctx, "u1", req.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.RequestStatusApproved, stored.Status)
	assert.True(t, stored.Processed)
}

func TestMarkProcessedMissingRequest(t *testing.T) {
	repo := NewMemoryRepository()

	_, err := repo.MarkProcessed(context.Background(), "u1", "missing", entities.RequestStatusApproved)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}
