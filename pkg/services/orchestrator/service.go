package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/regalspin/gamepanel/internal/logging"
	"github.com/regalspin/gamepanel/internal/types"
	"github.com/regalspin/gamepanel/pkg/bridge"
	"github.com/regalspin/gamepanel/pkg/entities"
	ledgerRepo "github.com/regalspin/gamepanel/pkg/repositories/ledger"
	requestRepo "github.com/regalspin/gamepanel/pkg/repositories/request"
)

// Resolution describes an operator decision observed by a poller. It is
// handed to the OnResolved hook before the durable completion phase runs,
// so callers can update their display optimistically.
type Resolution struct {
	RequestID string
	UserID    string
	GameID    string
	Status    entities.RequestStatus
}

// Options represents orchestrator configuration options
type Options struct {
	PollInterval  time.Duration
	PollTimeout   time.Duration
	ResumeTTL     time.Duration
	RedeemMinimum int64
	OnResolved    func(Resolution)
	Logger        *logging.Logger
}

// NewOptions creates a new Options with default values
func NewOptions() *Options {
	return &Options{
		PollInterval:  time.Second,
		PollTimeout:   5 * time.Minute,
		ResumeTTL:     15 * time.Minute,
		RedeemMinimum: 50,
		Logger:        logging.Default,
	}
}

// Service drives the request/approval state machine: it validates and
// persists requests, sends operator prompts, polls for resolutions, and
// applies each approved effect to the ledger exactly once.
type Service struct {
	requests requestRepo.Repository
	ledger   ledgerRepo.Repository
	bridges  bridge.Set
	opts     *Options
	logger   *logging.Logger

	mu      sync.Mutex
	pollers map[string]context.CancelFunc

	completeMu sync.Mutex
	completing map[string]*sync.Mutex

	submitMu   sync.Mutex
	submitting map[string]*sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates a new request orchestrator
func NewService(requests requestRepo.Repository, ledger ledgerRepo.Repository, bridges bridge.Set, opts *Options) *Service {
	if opts == nil {
		opts = NewOptions()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		requests:   requests,
		ledger:     ledger,
		bridges:    bridges,
		opts:       opts,
		logger:     opts.Logger,
		pollers:    make(map[string]context.CancelFunc),
		completing: make(map[string]*sync.Mutex),
		submitting: make(map[string]*sync.Mutex),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Submit validates a player action, persists it as a pending request,
// dispatches the operator prompt and starts the poller. Returns the created
// request; the caller correlates its blocking "processing" state on the id.
func (s *Service) Submit(ctx context.Context, user *entities.User, game entities.Game, reqType entities.RequestType, payload entities.RequestPayload) (*entities.Request, error) {
	req, err := s.createValidated(ctx, user, game, reqType, payload)
	if err != nil {
		return nil, err
	}

	s.logger.Info("[ORCHESTRATOR] Created %s request %s for user %s game %s", reqType, req.ID, user.ID, game.ID)

	// Best effort: the request is durable, so a lost prompt can still be
	// resolved by an operator who finds it by other means
	message := formatMessage(user, req)
	buttons := []bridge.Button{
		{Label: "Confirm", Token: bridge.ApproveToken(user.ID, req.ID)},
		{Label: "Decline", Token: bridge.DeclineToken(user.ID, req.ID)},
	}
	if err := s.bridges.For(reqType).Send(ctx, message, buttons); err != nil {
		werr := types.WrapError(types.ErrBridgeError, "prompt delivery failed", err)
		s.logger.Warn("[ORCHESTRATOR] Failed to send approval prompt for request %s: %v", req.ID, werr)
	}

	s.startPoller(req)

	return req, nil
}

// Resume re-attaches pollers for a user's pending requests, skipping ghosts
// older than the resume TTL. Required after restart or page reload: a
// request left pending past the local poll timeout can still resolve here.
func (s *Service) Resume(ctx context.Context, userID string) error {
	pending, err := s.requests.ListPending(ctx, userID)
	if err != nil {
		return types.WrapError(types.ErrStorageError, "failed to list pending requests", err)
	}

	for _, req := range pending {
		if time.Since(req.CreatedAt) > s.opts.ResumeTTL {
			continue
		}
		s.startPoller(req)
	}

	return nil
}

// ActivePollers returns the number of polling loops currently attached
func (s *Service) ActivePollers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pollers)
}

// Stop cancels all pollers and waits for them to exit
func (s *Service) Stop() {
	s.cancel()
	s.wg.Wait()
}

// createValidated runs the submission preconditions and persists the
// request under the per-user submission lock. The lock is what makes the
// pending-transaction check and the insert one atomic step: without it two
// concurrent balance requests could both pass the busy guard.
func (s *Service) createValidated(ctx context.Context, user *entities.User, game entities.Game, reqType entities.RequestType, payload entities.RequestPayload) (*entities.Request, error) {
	lock := s.submitLock(user.ID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.validate(ctx, user, game, reqType, payload); err != nil {
		return nil, err
	}

	req := &entities.Request{
		UserID:   user.ID,
		GameID:   game.ID,
		GameName: game.Name,
		Type:     reqType,
		Payload:  payload,
	}

	if err := s.requests.CreateRequest(ctx, req); err != nil {
		return nil, types.WrapError(types.ErrStorageError, "failed to create request", err)
	}
	return req, nil
}

// submitLock returns the per-user submission mutex, creating it on first
// use. Entries are kept for the life of the process, same as the
// completion locks.
func (s *Service) submitLock(userID string) *sync.Mutex {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	lock, exists := s.submitting[userID]
	if !exists {
		lock = &sync.Mutex{}
		s.submitting[userID] = lock
	}
	return lock
}

// validate applies the submission preconditions for each request type.
// Failures here are surfaced synchronously and create no request.
func (s *Service) validate(ctx context.Context, user *entities.User, game entities.Game, reqType entities.RequestType, payload entities.RequestPayload) error {
	switch reqType {
	case entities.RequestTypeSave:
		p, ok := payload.(entities.SavePayload)
		if !ok || p.Password == "" {
			return types.NewRequestError(types.ErrPasswordMismatch, "password is required")
		}
		account, err := s.ledger.GetAccount(ctx, user.ID, game.ID)
		if err != nil && !errors.Is(err, ledgerRepo.ErrAccountNotFound) {
			return types.WrapError(types.ErrStorageError, "failed to check game account", err)
		}
		if account != nil && account.Password != "" {
			return types.NewRequestError(types.ErrCredentialExists, "account is already set up")
		}
		return s.checkGamePending(ctx, user.ID, game.ID, reqType)

	case entities.RequestTypeReset:
		p, ok := payload.(entities.ResetPayload)
		if !ok || p.NewPassword == "" {
			return types.NewRequestError(types.ErrPasswordMismatch, "new password is required")
		}
		account, err := s.ledger.GetAccount(ctx, user.ID, game.ID)
		if err != nil {
			if errors.Is(err, ledgerRepo.ErrAccountNotFound) {
				return types.NewRequestError(types.ErrCredentialMissing, "no account to reset")
			}
			return types.WrapError(types.ErrStorageError, "failed to check game account", err)
		}
		if account.Password == "" {
			return types.NewRequestError(types.ErrCredentialMissing, "no account to reset")
		}
		if account.Password != p.OldPassword {
			return types.NewRequestError(types.ErrPasswordMismatch, "incorrect old password")
		}
		return s.checkGamePending(ctx, user.ID, game.ID, reqType)

	case entities.RequestTypeAdd, entities.RequestTypeRedeem:
		p, ok := payload.(entities.TransactionPayload)
		if !ok || p.Amount <= 0 {
			return types.NewRequestError(types.ErrInvalidAmount, "amount must be a positive whole number")
		}

		// Only one balance-affecting request may be in flight per user
		busy, err := s.requests.HasPendingTransaction(ctx, user.ID)
		if err != nil {
			return types.WrapError(types.ErrStorageError, "failed to check pending transactions", err)
		}
		if busy {
			return types.NewRequestError(types.ErrRequestBusy, "another balance request is already in progress")
		}

		if reqType == entities.RequestTypeAdd {
			wallet, err := s.ledger.GetWallet(ctx, user.ID)
			if err != nil {
				return types.WrapError(types.ErrStorageError, "failed to load wallet", err)
			}
			if wallet.Balance < p.Amount {
				return types.NewRequestError(types.ErrInsufficientFunds,
					fmt.Sprintf("balance is less than %d", p.Amount))
			}
		} else if p.Amount < s.opts.RedeemMinimum {
			return types.NewRequestError(types.ErrBelowMinimum,
				fmt.Sprintf("amount should be %d or more", s.opts.RedeemMinimum))
		}
		return nil

	case entities.RequestTypeFreePlay:
		if _, ok := payload.(entities.FreePlayPayload); !ok {
			return types.NewRequestError(types.ErrInternalError, "invalid free play payload")
		}
		account, err := s.ledger.GetAccount(ctx, user.ID, game.ID)
		if err != nil {
			if errors.Is(err, ledgerRepo.ErrAccountNotFound) {
				return types.NewRequestError(types.ErrCredentialMissing, "set up the account before claiming free play")
			}
			return types.WrapError(types.ErrStorageError, "failed to check game account", err)
		}
		if account.Password == "" {
			return types.NewRequestError(types.ErrCredentialMissing, "set up the account before claiming free play")
		}
		if account.FreePlayRedeemed {
			return types.NewRequestError(types.ErrFreePlayClaimed, "free play has already been redeemed")
		}
		return s.checkGamePending(ctx, user.ID, game.ID, reqType)

	default:
		return types.NewRequestError(types.ErrInternalError, fmt.Sprintf("unknown request type: %s", reqType))
	}
}

// checkGamePending rejects a duplicate pending request for a game+type pair
func (s *Service) checkGamePending(ctx context.Context, userID, gameID string, reqType entities.RequestType) error {
	pending, err := s.requests.HasPendingForGame(ctx, userID, gameID, reqType)
	if err != nil {
		return types.WrapError(types.ErrStorageError, "failed to check pending requests", err)
	}
	if pending {
		return types.NewRequestError(types.ErrRequestPending, "a request of this type is already pending for this game")
	}
	return nil
}
