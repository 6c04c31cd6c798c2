package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/regalspin/gamepanel/internal/logging"
	"github.com/regalspin/gamepanel/internal/types"
	"github.com/regalspin/gamepanel/pkg/entities"
	ledgerRepo "github.com/regalspin/gamepanel/pkg/repositories/ledger"
)

// MinimumAmount is the smallest transferable amount in whole dollars
const MinimumAmount int64 = 2

// Options configures the transfer service
type Options struct {
	Logger *logging.Logger
}

// Service moves balance between two players' wallets. The debit and
// credit happen inside one storage transaction; the history entries are
// best effort after the move is durable.
type Service struct {
	ledger ledgerRepo.Repository
	logger *logging.Logger
}

// NewService creates a new transfer service
func NewService(ledger ledgerRepo.Repository, opts *Options) *Service {
	logger := logging.Default
	if opts != nil && opts.Logger != nil {
		logger = opts.Logger
	}
	return &Service{
		ledger: ledger,
		logger: logger,
	}
}

// Send transfers amount whole dollars from one user to another. The
// sender's display names ride along only for the audit entries.
func (s *Service) Send(ctx context.Context, fromUserID, fromName, toUserID, toName string, amount int64) error {
	if amount < MinimumAmount {
		return types.NewRequestError(types.ErrBelowMinimum,
			fmt.Sprintf("transfer amount must be at least %d", MinimumAmount))
	}
	if fromUserID == toUserID {
		return types.NewRequestError(types.ErrInvalidAmount, "cannot transfer to yourself")
	}

	if err := s.ledger.Transfer(ctx, fromUserID, toUserID, amount); err != nil {
		if errors.Is(err, ledgerRepo.ErrInsufficientFunds) {
			return types.NewRequestError(types.ErrInsufficientFunds, "insufficient balance for transfer")
		}
		if errors.Is(err, ledgerRepo.ErrWalletNotFound) {
			return types.NewRequestError(types.ErrWalletNotFound, "recipient wallet not found")
		}
		return types.WrapError(types.ErrStorageError, "failed to transfer balance", err)
	}

	s.logger.Info("[TRANSFER] Moved %d from user %s to user %s", amount, fromUserID, toUserID)

	// The move is durable; a lost audit row is a log line, not a rollback
	sent := &entities.HistoryEntry{
		UserID: fromUserID,
		Action: "Sent",
		Details: entities.Details{
			Amount:       amount,
			Counterparty: toName,
		},
	}
	if err := s.ledger.AddHistory(ctx, sent); err != nil {
		s.logger.Warn("[TRANSFER] Failed to record sender history for %s: %v", fromUserID, err)
	}

	received := &entities.HistoryEntry{
		UserID: toUserID,
		Action: "Received",
		Details: entities.Details{
			Amount:       amount,
			Counterparty: fromName,
		},
	}
	if err := s.ledger.AddHistory(ctx, received); err != nil {
		s.logger.Warn("[TRANSFER] Failed to record recipient history for %s: %v", toUserID, err)
	}

	return nil
}
