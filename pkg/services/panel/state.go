package panel

import (
	"fmt"
	"time"

	"github.com/regalspin/gamepanel/pkg/entities"
)

// CredentialState is the display state of a game row's credential column
type CredentialState string

const (
	// CredentialSetup shows an enabled password input: nothing stored,
	// nothing in flight
	CredentialSetup CredentialState = "setup"
	// CredentialSaving means a SAVE request is pending approval
	CredentialSaving CredentialState = "saving"
	// CredentialStored shows the stored password, disabled, with Reset available
	CredentialStored CredentialState = "stored"
	// CredentialResetCountdown means a RESET is pending and the countdown
	// has not yet elapsed
	CredentialResetCountdown CredentialState = "reset_countdown"
	// CredentialResetPending means a RESET is pending past the countdown
	CredentialResetPending CredentialState = "reset_pending"
)

// TransactionState is the display state of a game row's add/redeem column
type TransactionState string

const (
	// TransactionAvailable shows enabled Add and Redeem buttons
	TransactionAvailable TransactionState = "available"
	// TransactionCountdown means this game has a pending ADD or REDEEM
	// inside the countdown window
	TransactionCountdown TransactionState = "countdown"
	// TransactionPending means this game's ADD or REDEEM outlived the countdown
	TransactionPending TransactionState = "pending"
	// TransactionBusy means another game holds the user's single in-flight
	// balance request; buttons stay visible but submission must be refused
	TransactionBusy TransactionState = "busy"
)

// FreePlayState is the display state of a game row's free-play column
type FreePlayState string

const (
	// FreePlayLocked means no credential exists yet, so the claim is unavailable
	FreePlayLocked FreePlayState = "locked"
	// FreePlayAvailable means the one-time claim can be requested
	FreePlayAvailable FreePlayState = "available"
	// FreePlayRequested means a FREEPLAY request is pending (spinner)
	FreePlayRequested FreePlayState = "requested"
	// FreePlayRedeemed is terminal; the flag never clears
	FreePlayRedeemed FreePlayState = "redeemed"
)

// GameView is the fully derived display state for one (user, game) row
type GameView struct {
	GameID   string
	GameName string

	Credential     CredentialState
	StoredPassword string

	Transaction TransactionState
	FreePlay    FreePlayState

	// Countdown is the remaining display time for whichever request drives
	// the row's countdown state. Negative means the request is still
	// pending but taking longer than usual.
	Countdown time.Duration
}

// Countdown returns the remaining display time for a request created at
// createdAt: the countdown window minus elapsed time. Not clamped; callers
// render negative values as "taking longer than usual".
func Countdown(window time.Duration, createdAt, now time.Time) time.Duration {
	return window - now.Sub(createdAt)
}

// FormatTimer renders a countdown as m:ss, with a leading minus for
// overdue requests
func FormatTimer(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	totalSeconds := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%s%d:%02d", sign, totalSeconds/60, totalSeconds%60)
}

// deriveCredential picks the credential column state from the stored
// account and any pending SAVE/RESET for this game
func deriveCredential(account *entities.GameAccount, pending []*entities.Request, window time.Duration, now time.Time) (CredentialState, time.Duration) {
	if account == nil {
		if hasPending(pending, entities.RequestTypeSave) {
			return CredentialSaving, 0
		}
		return CredentialSetup, 0
	}

	if req := findPending(pending, entities.RequestTypeReset); req != nil {
		remaining := Countdown(window, req.CreatedAt, now)
		if remaining > 0 {
			return CredentialResetCountdown, remaining
		}
		return CredentialResetPending, remaining
	}

	return CredentialStored, 0
}

// deriveTransaction picks the add/redeem column state. userBusy reports a
// pending ADD or REDEEM anywhere for the user; gamePending is this game's
// own pending balance request, if any.
func deriveTransaction(gamePending *entities.Request, userBusy bool, window time.Duration, now time.Time) (TransactionState, time.Duration) {
	if gamePending != nil {
		remaining := Countdown(window, gamePending.CreatedAt, now)
		if remaining > 0 {
			return TransactionCountdown, remaining
		}
		return TransactionPending, remaining
	}
	if userBusy {
		return TransactionBusy, 0
	}
	return TransactionAvailable, 0
}

// deriveFreePlay picks the free-play column state. Redeemed wins over
// everything; a missing credential locks the claim.
func deriveFreePlay(account *entities.GameAccount, pending []*entities.Request) FreePlayState {
	if account == nil {
		return FreePlayLocked
	}
	if account.FreePlayRedeemed {
		return FreePlayRedeemed
	}
	if hasPending(pending, entities.RequestTypeFreePlay) {
		return FreePlayRequested
	}
	return FreePlayAvailable
}

func findPending(pending []*entities.Request, t entities.RequestType) *entities.Request {
	for _, req := range pending {
		if req.Type == t {
			return req
		}
	}
	return nil
}

func findPendingTransaction(pending []*entities.Request) *entities.Request {
	for _, req := range pending {
		if req.Type.IsTransaction() {
			return req
		}
	}
	return nil
}

func hasPending(pending []*entities.Request, t entities.RequestType) bool {
	return findPending(pending, t) != nil
}
