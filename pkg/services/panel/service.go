package panel

import (
	"context"
	"errors"
	"time"

	"github.com/regalspin/gamepanel/internal/types"
	"github.com/regalspin/gamepanel/pkg/entities"
	ledgerRepo "github.com/regalspin/gamepanel/pkg/repositories/ledger"
	requestRepo "github.com/regalspin/gamepanel/pkg/repositories/request"
)

// Options configures the panel service
type Options struct {
	// CountdownWindow is how long a pending request shows a live countdown
	// before switching to the overdue "pending" indicator
	CountdownWindow time.Duration

	// Now supplies the current time; overridable for tests
	Now func() time.Time
}

// NewOptions creates panel options with sensible defaults
func NewOptions() *Options {
	return &Options{
		CountdownWindow: 120 * time.Second,
		Now:             time.Now,
	}
}

// Service derives per-game display state from the ledger and request
// stores. It holds no state of its own; every call reads fresh.
type Service struct {
	ledger   ledgerRepo.Repository
	requests requestRepo.Repository
	opts     *Options
}

// NewService creates a new panel service
func NewService(ledger ledgerRepo.Repository, requests requestRepo.Repository, opts *Options) *Service {
	if opts == nil {
		opts = NewOptions()
	}
	if opts.CountdownWindow <= 0 {
		opts.CountdownWindow = 120 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		ledger:   ledger,
		requests: requests,
		opts:     opts,
	}
}

// View derives the display state for every given game in one pass: a
// single pending-request listing feeds all rows, so the busy banner and
// each game's own countdown come from the same snapshot.
func (s *Service) View(ctx context.Context, userID string, games []entities.Game) ([]GameView, error) {
	pending, err := s.requests.ListPending(ctx, userID)
	if err != nil {
		return nil, types.WrapError(types.ErrStorageError, "failed to list pending requests", err)
	}

	userTransaction := findPendingTransaction(pending)
	now := s.opts.Now()

	views := make([]GameView, 0, len(games))
	for _, game := range games {
		account, err := s.ledger.GetAccount(ctx, userID, game.ID)
		if err != nil {
			if !errors.Is(err, ledgerRepo.ErrAccountNotFound) {
				return nil, types.WrapError(types.ErrStorageError, "failed to load game account", err)
			}
			account = nil
		}

		gamePending := pendingForGame(pending, game.ID)

		view := GameView{
			GameID:   game.ID,
			GameName: game.Name,
		}
		if account != nil {
			view.StoredPassword = account.Password
		}

		credState, credCountdown := deriveCredential(account, gamePending, s.opts.CountdownWindow, now)
		view.Credential = credState

		gameTransaction := findPendingTransaction(gamePending)
		userBusy := userTransaction != nil && gameTransaction == nil
		txState, txCountdown := deriveTransaction(gameTransaction, userBusy, s.opts.CountdownWindow, now)
		view.Transaction = txState

		view.FreePlay = deriveFreePlay(account, gamePending)

		// one countdown per row; the transaction's wins when both run
		view.Countdown = credCountdown
		if txState == TransactionCountdown || txState == TransactionPending {
			view.Countdown = txCountdown
		}

		views = append(views, view)
	}

	return views, nil
}

// Busy reports whether the user already has a balance request in flight
// anywhere. Submission paths call this to show the busy message instead of
// creating a second request.
func (s *Service) Busy(ctx context.Context, userID string) (bool, error) {
	busy, err := s.requests.HasPendingTransaction(ctx, userID)
	if err != nil {
		return false, types.WrapError(types.ErrStorageError, "failed to check pending transactions", err)
	}
	return busy, nil
}

func pendingForGame(pending []*entities.Request, gameID string) []*entities.Request {
	var result []*entities.Request
	for _, req := range pending {
		if req.GameID == gameID {
			result = append(result, req)
		}
	}
	return result
}
