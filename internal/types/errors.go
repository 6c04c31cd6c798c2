package types

import "fmt"

// ErrorCode represents a specific error type
type ErrorCode string

const (
	// Validation errors, caught before a request is created
	ErrInvalidAmount      ErrorCode = "INVALID_AMOUNT"
	ErrInsufficientFunds  ErrorCode = "INSUFFICIENT_FUNDS"
	ErrBelowMinimum       ErrorCode = "BELOW_MINIMUM"
	ErrPasswordMismatch   ErrorCode = "PASSWORD_MISMATCH"
	ErrCredentialExists   ErrorCode = "CREDENTIAL_EXISTS"
	ErrCredentialMissing  ErrorCode = "CREDENTIAL_MISSING"
	ErrFreePlayClaimed    ErrorCode = "FREEPLAY_CLAIMED"

	// Concurrency-policy errors
	ErrRequestBusy    ErrorCode = "REQUEST_BUSY"
	ErrRequestPending ErrorCode = "REQUEST_PENDING"

	// State errors
	ErrRequestNotFound ErrorCode = "REQUEST_NOT_FOUND"
	ErrWalletNotFound  ErrorCode = "WALLET_NOT_FOUND"

	// System errors
	ErrInternalError ErrorCode = "INTERNAL_ERROR"
	ErrStorageError  ErrorCode = "STORAGE_ERROR"
	ErrBridgeError   ErrorCode = "BRIDGE_ERROR"
)

// RequestError represents a workflow-related error
type RequestError struct {
	Code    ErrorCode
	Message string
	Err     error // Underlying error, if any
}

// Error implements the error interface
func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *RequestError) Unwrap() error {
	return e.Err
}

// NewRequestError creates a new RequestError
func NewRequestError(code ErrorCode, message string) *RequestError {
	return &RequestError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error in a RequestError
func WrapError(code ErrorCode, message string, err error) *RequestError {
	return &RequestError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsRequestError checks if an error is a RequestError with a specific code
func IsRequestError(err error, code ErrorCode) bool {
	var reqErr *RequestError
	if err == nil {
		return false
	}
	if ok := As(err, &reqErr); !ok {
		return false
	}
	return reqErr.Code == code
}

// As is a helper function to safely type assert an error to a RequestError
func As(err error, target **RequestError) bool {
	if target == nil {
		return false
	}
	if reqErr, ok := err.(*RequestError); ok {
		*target = reqErr
		return true
	}
	return false
}
