package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is wrapped by every lookup that finds no row.
	ErrNotFound = errors.New("not found")

	// ErrStaleData signals that a record changed between the read that built a
	// reception session and the write that commits it. The caller must refresh.
	ErrStaleData = errors.New("stale data, please refresh")

	// ErrInvalidTransition is returned when a status change is not allowed from the current status.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Validation error codes. They share the UPPER_SNAKE form of the other API error codes.
const (
	CodeInvalidInput     = "INVALID_INPUT"
	CodeExceedsNeed      = "EXCEEDS_NEED"
	CodeExceedsReceived  = "EXCEEDS_RECEIVED"
	CodeUnknownWorkOrder = "UNKNOWN_WORK_ORDER"
	CodeUnknownLine      = "UNKNOWN_LINE"
	CodeNegativeResidual = "NEGATIVE_RESIDUAL"
)

// ValidationError reports input that would break a domain invariant.
// It is distinct from transport and storage errors so adapters can answer 422.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(code, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
