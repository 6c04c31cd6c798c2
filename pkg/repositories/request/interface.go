package request

import (
	"context"

	"github.com/regalspin/gamepanel/pkg/entities"
)

// Repository defines the interface for approval-request persistence.
// Requests are never deleted; resolved rows remain as the audit trail.
type Repository interface {
	// CreateRequest persists a new request in pending status
	CreateRequest(ctx context.Context, req *entities.Request) error

	// GetRequest retrieves a request by owner and id
	GetRequest(ctx context.Context, userID, requestID string) (*entities.Request, error)

	// ListPending retrieves all pending requests for a user
	ListPending(ctx context.Context, userID string) ([]*entities.Request, error)

	// ListUsersWithPending retrieves the ids of all users that have at
	// least one pending request. Used to resume pollers after a restart.
	ListUsersWithPending(ctx context.Context) ([]string, error)

	// HasPendingTransaction reports whether the user has a pending ADD or
	// REDEEM request. Enforces the one-balance-request-in-flight rule.
	HasPendingTransaction(ctx context.Context, userID string) (bool, error)

	// HasPendingForGame reports whether the user has a pending request of
	// the given type for a game
	HasPendingForGame(ctx context.Context, userID, gameID string, reqType entities.RequestType) (bool, error)

	// MarkProcessed conditionally records the terminal status and sets the
	// processed flag. Returns false when another completion already won;
	// the caller must then skip its side effects.
	MarkProcessed(ctx context.Context, userID, requestID string, status entities.RequestStatus) (bool, error)
}
