package orchestrator

import (
	"context"
	"time"

	"github.com/regalspin/gamepanel/pkg/bridge"
	"github.com/regalspin/gamepanel/pkg/entities"
)

// startPoller registers and launches the polling loop for a request.
// A request gets at most one poller per service instance.
func (s *Service) startPoller(req *entities.Request) {
	s.mu.Lock()
	if _, exists := s.pollers[req.ID]; exists {
		s.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.pollers[req.ID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.runPoller(ctx, req)
}

// runPoller repeatedly queries the bridge for the operator's decision on
// one request. Poll failures count as "no update yet"; after the local
// timeout the loop gives up without touching the request, which stays
// pending and may still resolve on a later resume.
func (s *Service) runPoller(ctx context.Context, req *entities.Request) {
	defer s.wg.Done()
	defer s.removePoller(req.ID)

	b := s.bridges.For(req.Type)
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(s.opts.PollTimeout)
	defer deadline.Stop()

	var cursor int64

	for {
		select {
		case <-ctx.Done():
			return

		case <-deadline.C:
			s.logger.Warn("[ORCHESTRATOR] Gave up polling request %s after %s; request remains pending", req.ID, s.opts.PollTimeout)
			return

		case <-ticker.C:
			update, err := b.PollOnce(ctx, req.ID, cursor)
			if err != nil {
				// Transient network failure, treat as no update
				continue
			}
			if update.NextCursor > cursor {
				cursor = update.NextCursor
			}
			if !update.Matched {
				continue
			}

			status := entities.RequestStatusApproved
			if update.Action != bridge.ActionApprove {
				status = entities.RequestStatusRejected
			}

			// Phase one: optimistic notification so the caller can show
			// the outcome before the ledger write lands
			if s.opts.OnResolved != nil {
				s.opts.OnResolved(Resolution{
					RequestID: req.ID,
					UserID:    req.UserID,
					GameID:    req.GameID,
					Status:    status,
				})
			}

			// Phase two: durable completion. Use a fresh context so a
			// shutdown mid-completion does not abandon the write.
			completeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := s.Complete(completeCtx, req.UserID, req.ID, status); err != nil {
				s.logger.LogError(err)
			}
			cancel()
			return
		}
	}
}

// removePoller tears down the registry entry for a finished poller
func (s *Service) removePoller(requestID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cancel, exists := s.pollers[requestID]; exists {
		cancel()
		delete(s.pollers, requestID)
	}
}
