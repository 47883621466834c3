package carteira

import "fmt"

// ErrorCode defines error classification codes for structured error handling.
type ErrorCode string

// Error codes for different error categories.
const (
	ErrCodeInvalidInput         ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound             ErrorCode = "NOT_FOUND"
	ErrCodeDuplicate            ErrorCode = "DUPLICATE"
	ErrCodeInsufficientQuantity ErrorCode = "INSUFFICIENT_QUANTITY"
	ErrCodeConsistency          ErrorCode = "CONSISTENCY_VIOLATION"
	ErrCodeDatabase             ErrorCode = "DATABASE_ERROR"
	ErrCodeValidation           ErrorCode = "VALIDATION_ERROR"
	ErrCodeInternal             ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with classification code.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with classification code and additional context.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// IsErrorCode checks if an error matches a specific error code.
func IsErrorCode(err error, code ErrorCode) bool {
	if e, ok := err.(*Error); ok {
		return e.Code == code
	}
	if e, ok := err.(*InsufficientQuantityError); ok {
		return e.Code == code
	}
	return false
}

// InsufficientQuantityError is returned when a sell would drive a position's
// current quantity negative. It carries enough context for user-facing
// formatting by the caller.
type InsufficientQuantityError struct {
	Code       ErrorCode
	AssetLabel string
	Requested  Amount
	Available  Amount
}

// Error implements the error interface.
func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("%s: cannot sell %s of %s, only %s available",
		e.Code, e.Requested.String(), e.AssetLabel, e.Available.String())
}

func newInsufficientQuantity(assetLabel string, requested, available Amount) *InsufficientQuantityError {
	return &InsufficientQuantityError{
		Code:       ErrCodeInsufficientQuantity,
		AssetLabel: assetLabel,
		Requested:  requested,
		Available:  available,
	}
}
