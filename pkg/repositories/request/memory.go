package request

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
	ErrRequestNotFound = errors.New("request not found")
)

// MemoryRepository implements Repository using in-memory storage
type MemoryRepository struct {
	requests map[string]map[string]*entities.Request // userID -> requestID -> request
	mu       sync.RWMutex
}

// NewMemoryRepository creates a new in-memory request repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		requests: make(map[string]map[string]*entities.Request),
	}
}

// CreateRequest persists a new request in pending status
func (r *MemoryRepository) CreateRequest(ctx context.Context, req *entities.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	req.Status = entities.RequestStatusPending
	req.Processed = false

	userRequests, exists := r.requests[req.UserID]
	if !exists {
		userRequests = make(map[string]*entities.Request)
		r.requests[req.UserID] = userRequests
	}

	reqCopy := *req
	userRequests[req.ID] = &reqCopy
	return nil
}

// GetRequest retrieves a request by owner and id
func (r *MemoryRepository) GetRequest(ctx context.Context, userID, requestID string) (*entities.Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, exists := r.requests[userID][requestID]
	if !exists {
		return nil, ErrRequestNotFound
	}

	reqCopy := *req
	return &reqCopy, nil
}

// ListPending retrieves all pending requests for a user, oldest first
func (r *MemoryRepository) ListPending(ctx context.Context, userID string) ([]*entities.Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var pending []*entities.Request
	for _, req := range r.requests[userID] {
		if req.Status == entities.RequestStatusPending {
			reqCopy := *req
			pending = append(pending, &reqCopy)
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	return pending, nil
}

// ListUsersWithPending retrieves the ids of all users with at least one
// pending request, sorted for deterministic iteration
func (r *MemoryRepository) ListUsersWithPending(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var users []string
	for userID, userRequests := range r.requests {
		for _, req := range userRequests {
			if req.Status == entities.RequestStatusPending {
				users = append(users, userID)
				break
			}
		}
	}

	sort.Strings(users)
	return users, nil
}

// HasPendingTransaction reports whether the user has a pending ADD or REDEEM
func (r *MemoryRepository) HasPendingTransaction(ctx context.Context, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, req := range r.requests[userID] {
		if req.Status == entities.RequestStatusPending && req.Type.IsTransaction() {
			return true, nil
		}
	}
	return false, nil
}

// HasPendingForGame reports whether the user has a pending request of the
// given type for a game
func (r *MemoryRepository) HasPendingForGame(ctx context.Context, userID, gameID string, reqType entities.RequestType) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, req := range r.requests[userID] {
		if req.Status == entities.RequestStatusPending && req.GameID == gameID && req.Type == reqType {
			return true, nil
		}
	}
	return false, nil
}

// MarkProcessed conditionally records the terminal status and processed flag
func (r *MemoryRepository) MarkProcessed(ctx context.Context, userID, requestID string, status entities.RequestStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, exists := r.requests[userID][requestID]
	if !exists {
		return false, ErrRequestNotFound
	}
	if req.Processed {
		return false, nil
	}

	req.Status = status
	req.Processed = true
	return true, nil
}
