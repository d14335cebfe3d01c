package errors

import (
	"errors"
	"fmt"
)

// Code represents a specific error type for memory and governor operations.
type Code string

const (
	// CodeValidation indicates bad input rejected before any store access.
	CodeValidation Code = "VALIDATION"
	// CodeStoreUnavailable indicates a transient record-store failure.
	// Callers decide whether to retry; these components return immediately.
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
	// CodeConsolidationFailed indicates an audit-trail write failure.
	// Losing provenance is unacceptable, so this always propagates.
	CodeConsolidationFailed Code = "CONSOLIDATION_FAILED"
	// CodeBudgetExceeded indicates the paid-AI budget would be exceeded.
	CodeBudgetExceeded Code = "BUDGET_EXCEEDED"
	// CodeModelUnavailable indicates the model invocation failed.
	CodeModelUnavailable Code = "MODEL_UNAVAILABLE"
	// CodeModelTimeout indicates the model invocation timed out.
	CodeModelTimeout Code = "MODEL_TIMEOUT"
)

// Error is a structured error carrying a machine-readable code.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatting.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// StoreUnavailable wraps a record-store failure.
func StoreUnavailable(msg string, cause error) *Error {
	return &Error{Code: CodeStoreUnavailable, Message: msg, Cause: cause}
}

// ConsolidationFailed wraps an audit-trail write failure.
func ConsolidationFailed(msg string, cause error) *Error {
	return &Error{Code: CodeConsolidationFailed, Message: msg, Cause: cause}
}

// BudgetExceeded creates a budget denial error.
func BudgetExceeded(msg string) *Error {
	return &Error{Code: CodeBudgetExceeded, Message: msg}
}

// ModelUnavailable wraps a model invocation failure.
func ModelUnavailable(msg string, cause error) *Error {
	return &Error{Code: CodeModelUnavailable, Message: msg, Cause: cause}
}

// ModelTimeout creates a model timeout error.
func ModelTimeout(msg string) *Error {
	return &Error{Code: CodeModelTimeout, Message: msg}
}

// Wrap wraps an existing error with a code and message.
func Wrap(cause error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Cause: cause}
}

// IsCode checks whether err carries the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf extracts the code from err, or returns defaultCode.
func CodeOf(err error, defaultCode Code) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return defaultCode
}
