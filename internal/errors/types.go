package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode identifies a failure class of the planner core.
type ErrorCode string

const (
	// Remote store errors
	ErrCodeNetworkFailure ErrorCode = "NETWORK_FAILURE"

	// Cache consistency errors
	ErrCodeInconsistentState ErrorCode = "INCONSISTENT_STATE"

	// User input errors
	ErrCodeInvalidTimeInput ErrorCode = "INVALID_TIME_INPUT"
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"

	// Edit session errors
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"

	// Configuration errors
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"
)

// Error is a coded error carrying optional structured details.
type Error struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *Error) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new Error
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a code
func Wrap(err error, code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is reports whether err, or anything it wraps, is an *Error with the given code.
func Is(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// GetCode extracts the first error code found in err's chain.
func GetCode(err error) ErrorCode {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Code
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = unwrapper.Unwrap()
	}
	return ""
}
