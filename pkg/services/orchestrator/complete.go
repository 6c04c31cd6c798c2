package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/regalspin/gamepanel/internal/types"
	"github.com/regalspin/gamepanel/pkg/entities"
	ledgerRepo "github.com/regalspin/gamepanel/pkg/repositories/ledger"
)

// Complete applies the resolved outcome of a request to the ledger exactly
// once. Safe to call any number of times, from any number of pollers: a
// per-request lock serializes concurrent callers in this process, the
// processed flag short-circuits replays, and the conditional MarkProcessed
// write is the cross-process backstop. The processed flag is written last,
// so a crash between the mutation and the flag leaves a request that is
// safe to re-complete (history rows carry the request id for audit).
func (s *Service) Complete(ctx context.Context, userID, requestID string, status entities.RequestStatus) error {
	lock := s.completionLock(requestID)
	lock.Lock()
	defer lock.Unlock()

	req, err := s.requests.GetRequest(ctx, userID, requestID)
	if err != nil {
		return types.WrapError(types.ErrStorageError, "failed to load request", err)
	}
	if req.Processed {
		return nil
	}

	if status == entities.RequestStatusApproved {
		if err := s.applyApproved(ctx, req); err != nil {
			return err
		}
	} else {
		if err := s.recordRejection(ctx, req); err != nil {
			return err
		}
	}

	// Last step: flip the processed flag. Losing this race means another
	// completion already applied the effect; nothing more to do.
	if _, err := s.requests.MarkProcessed(ctx, userID, requestID, status); err != nil {
		return types.WrapError(types.ErrStorageError, "failed to mark request processed", err)
	}

	s.logger.Info("[ORCHESTRATOR] Completed request %s with status %s", requestID, status)
	return nil
}

// applyApproved performs the single ledger mutation for an approved
// request, matched exhaustively over the payload union, plus its history
// entry.
func (s *Service) applyApproved(ctx context.Context, req *entities.Request) error {
	switch p := req.Payload.(type) {
	case entities.SavePayload:
		if err := s.ledger.SaveCredential(ctx, req.UserID, req.GameID, p.Password); err != nil {
			return types.WrapError(types.ErrStorageError, "failed to save credential", err)
		}
		return s.writeHistory(ctx, req, "Account Created", entities.Details{Game: req.GameName}, false)

	case entities.ResetPayload:
		if err := s.ledger.SaveCredential(ctx, req.UserID, req.GameID, p.NewPassword); err != nil {
			return types.WrapError(types.ErrStorageError, "failed to reset credential", err)
		}
		return s.writeHistory(ctx, req, "Password Reset", entities.Details{Game: req.GameName}, false)

	case entities.FreePlayPayload:
		if err := s.ledger.SetFreePlayRedeemed(ctx, req.UserID, req.GameID); err != nil {
			return types.WrapError(types.ErrStorageError, "failed to set free play flag", err)
		}
		return s.writeHistory(ctx, req, "Free Play Redeemed", entities.Details{Game: req.GameName}, false)

	case entities.TransactionPayload:
		if req.Type == entities.RequestTypeAdd {
			// Funds move to the external game software: debit the wallet.
			// The conditional update re-validates the balance server-side.
			err := s.ledger.AdjustBalance(ctx, req.UserID, -p.Amount)
			if errors.Is(err, ledgerRepo.ErrInsufficientFunds) {
				return s.writeHistory(ctx, req, "Deposit Failed", entities.Details{
					Game:   req.GameName,
					Amount: p.Amount,
					Reason: "Balance no longer covers the approved amount",
				}, true)
			}
			if err != nil {
				return types.WrapError(types.ErrStorageError, "failed to debit wallet", err)
			}

			if err := s.ledger.RecordCashAdd(ctx, req.UserID, req.GameID, p.Amount); err != nil {
				s.logger.Warn("[ORCHESTRATOR] Failed to record cash add for request %s: %v", req.ID, err)
			}
			return s.writeHistory(ctx, req, "Deposit Approved", entities.Details{Game: req.GameName, Amount: p.Amount}, false)
		}

		// REDEEM: funds come back from the game software into the wallet
		if err := s.ledger.AdjustBalance(ctx, req.UserID, p.Amount); err != nil {
			return types.WrapError(types.ErrStorageError, "failed to credit wallet", err)
		}
		return s.writeHistory(ctx, req, "Redeem Approved", entities.Details{Game: req.GameName, Amount: p.Amount}, false)

	default:
		return types.NewRequestError(types.ErrInternalError, fmt.Sprintf("unknown payload type for request %s", req.ID))
	}
}

// recordRejection writes the audit entry for a declined request. Rejection
// is a normal terminal outcome, not a system fault, but it is flagged as an
// error entry for the activity log.
func (s *Service) recordRejection(ctx context.Context, req *entities.Request) error {
	if req.Type == entities.RequestTypeRedeem {
		p, _ := req.Payload.(entities.TransactionPayload)
		return s.writeHistory(ctx, req, "Request Declined", entities.Details{
			Game:   req.GameName,
			Amount: p.Amount,
			Reason: fmt.Sprintf("Insufficient balance for redeeming amount from %s", req.GameName),
		}, true)
	}

	return s.writeHistory(ctx, req, "Request Rejected", entities.Details{
		Game:   req.GameName,
		Reason: string(req.Type),
	}, true)
}

func (s *Service) writeHistory(ctx context.Context, req *entities.Request, action string, details entities.Details, isError bool) error {
	entry := &entities.HistoryEntry{
		UserID:    req.UserID,
		RequestID: req.ID,
		Action:    action,
		Details:   details,
		IsError:   isError,
	}
	if err := s.ledger.AddHistory(ctx, entry); err != nil {
		return types.WrapError(types.ErrStorageError, "failed to write history entry", err)
	}
	return nil
}

// completionLock returns the per-request mutex, creating it on first use.
// Entries are kept for the life of the process: a request completes once,
// and handing the same pointer to every caller is what makes the
// serialization sound.
func (s *Service) completionLock(requestID string) *sync.Mutex {
	s.completeMu.Lock()
	defer s.completeMu.Unlock()

	lock, exists := s.completing[requestID]
	if !exists {
		lock = &sync.Mutex{}
		s.completing[requestID] = lock
	}
	return lock
}
