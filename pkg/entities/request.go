package entities

import (
	"encoding/json"
	"fmt"
	"time"
)

// RequestType identifies the action a player asked an operator to approve
type RequestType string

const (
	RequestTypeSave     RequestType = "SAVE"
	RequestTypeReset    RequestType = "RESET"
	RequestTypeAdd      RequestType = "ADD"
	RequestTypeRedeem   RequestType = "REDEEM"
	RequestTypeFreePlay RequestType = "FREEPLAY"
)

// IsTransaction reports whether the type moves wallet funds. ADD and REDEEM
// are mutually exclusive per user while one is pending.
func (t RequestType) IsTransaction() bool {
	return t == RequestTypeAdd || t == RequestTypeRedeem
}

// RequestStatus is the persisted outcome of a request
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// RequestPayload is the tagged union of per-type request payloads. The
// concrete types below are the only implementations.
type RequestPayload interface {
	payloadType() RequestType
}

// SavePayload carries the credential for an account-creation request.
type SavePayload struct {
	Password string `json:"password"`
}

// ResetPayload carries both passwords for a credential-reset request. The
// old password is re-verified against the stored credential at submission.
type ResetPayload struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// TransactionPayload carries the amount for an ADD or REDEEM request, in
// whole dollars.
type TransactionPayload struct {
	Amount int64 `json:"amount"`
}

// FreePlayPayload is empty; the request type itself is the payload.
type FreePlayPayload struct{}

func (SavePayload) payloadType() RequestType        { return RequestTypeSave }
func (ResetPayload) payloadType() RequestType       { return RequestTypeReset }
func (TransactionPayload) payloadType() RequestType { return RequestTypeAdd }
func (FreePlayPayload) payloadType() RequestType    { return RequestTypeFreePlay }

// Request is the central entity of the approval workflow. It is created in
// pending status, resolved exactly once by an operator action, and never
// deleted; Processed is set only after the ledger mutation has been applied.
type Request struct {
	ID        string
	UserID    string
	GameID    string
	GameName  string
	Type      RequestType
	Payload   RequestPayload
	Status    RequestStatus
	Processed bool
	CreatedAt time.Time
}

// MarshalPayload serializes a payload for storage.
func MarshalPayload(p RequestPayload) (json.RawMessage, error) {
	if p == nil {
		return json.RawMessage("{}"), nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("error marshaling payload: %w", err)
	}
	return raw, nil
}

// UnmarshalPayload reconstructs the concrete payload for a request type.
func UnmarshalPayload(t RequestType, raw json.RawMessage) (RequestPayload, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	switch t {
	case RequestTypeSave:
		var p SavePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("error unmarshaling SAVE payload: %w", err)
		}
		return p, nil
	case RequestTypeReset:
		var p ResetPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("error unmarshaling RESET payload: %w", err)
		}
		return p, nil
	case RequestTypeAdd, RequestTypeRedeem:
		var p TransactionPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("error unmarshaling transaction payload: %w", err)
		}
		return p, nil
	case RequestTypeFreePlay:
		return FreePlayPayload{}, nil
	default:
		return nil, fmt.Errorf("unknown request type: %s", t)
	}
}
