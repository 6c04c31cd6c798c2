package bridge

import (
	"context"
	"fmt"
	"strings"

	"github.com/regalspin/gamepanel/pkg/entities"
)

// Action is the operator's response to an approval prompt
type Action string

const (
	ActionApprove Action = "approve"
	ActionDecline Action = "decline"
)

// Button is one actionable control on an operator prompt. Token is the
// opaque correlation payload carried back on the operator's response.
type Button struct {
	Label string
	Token string
}

// Update is the result of one poll of the operator channel
type Update struct {
	Matched    bool
	Action     Action
	NextCursor int64
}

// Bridge sends approval prompts to an operator channel and polls for the
// operator's button press. Implementations must treat transport-level
// failures as transient and must deliver each inbound event at most once
// per cursor position.
//
//go:generate mockgen -source=$GOFILE -destination=mock/bridge.go -package=mock_bridge
type Bridge interface {
	// Send delivers a prompt with actionable buttons to the operator channel
	Send(ctx context.Context, message string, buttons []Button) error

	// PollOnce queries the channel for the first inbound action whose token
	// matches the correlation string, starting at cursor. The returned
	// cursor is strictly increasing so events are observed at most once.
	PollOnce(ctx context.Context, correlation string, cursor int64) (Update, error)
}

// ApproveToken builds the correlation token for an approve button.
// The request id makes tokens unique across users and requests.
func ApproveToken(userID, requestID string) string {
	return fmt.Sprintf("%s:%s:%s", ActionApprove, userID, requestID)
}

// DeclineToken builds the correlation token for a decline button
func DeclineToken(userID, requestID string) string {
	return fmt.Sprintf("%s:%s:%s", ActionDecline, userID, requestID)
}

// MatchToken checks whether an inbound token belongs to the correlation
// string and extracts the operator's action
func MatchToken(token, correlation string) (Action, bool) {
	if correlation == "" || !strings.Contains(token, correlation) {
		return "", false
	}
	if strings.HasPrefix(token, string(ActionApprove)) {
		return ActionApprove, true
	}
	return ActionDecline, true
}

// Set maps request kinds to operator channels. Unset per-kind bridges fall
// back to Default, mirroring the per-kind channel configuration.
type Set struct {
	Default     Bridge
	Create      Bridge
	Reset       Bridge
	Transaction Bridge
	FreePlay    Bridge
}

// For returns the bridge serving a request type
func (s Set) For(t entities.RequestType) Bridge {
	var b Bridge
	switch t {
	case entities.RequestTypeSave:
		b = s.Create
	case entities.RequestTypeReset:
		b = s.Reset
	case entities.RequestTypeAdd, entities.RequestTypeRedeem:
		b = s.Transaction
	case entities.RequestTypeFreePlay:
		b = s.FreePlay
	}
	if b == nil {
		b = s.Default
	}
	return b
}
