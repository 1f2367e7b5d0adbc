package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrInternal is returned when the caller should not see the underlying cause.
var ErrInternal = errors.New("internal error")

// ErrForbidden indicates the caller does not own the resource.
var ErrForbidden = errors.New("forbidden")

// ErrInsufficientPosition is returned when a sell exceeds the open position quantity.
var ErrInsufficientPosition = errors.New("insufficient position")

// ErrAggregator indicates the bank aggregator was unreachable or answered with an error.
var ErrAggregator = errors.New("aggregator error")

// ErrPriceUnavailable indicates no price feed could produce a quote for a symbol.
var ErrPriceUnavailable = errors.New("price unavailable")

// ErrAccountNotFound is returned when an account id does not resolve to one of
// the caller's own accounts. It matches ErrNotFound with errors.Is.
var ErrAccountNotFound = fmt.Errorf("account %w", ErrNotFound)

// AppError carries an HTTP-ish status code alongside a wrapped cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError creates an AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}
