package errors

import "fmt"

// NetworkFailure creates an error for a rejected or failed remote request.
func NetworkFailure(op string, err error) *Error {
	return Wrap(err, ErrCodeNetworkFailure, fmt.Sprintf("remote %s failed", op)).
		WithDetail("op", op)
}

// HTTPStatus creates a network failure for a non-2xx response.
func HTTPStatus(op string, status int) *Error {
	return New(ErrCodeNetworkFailure, fmt.Sprintf("remote %s failed with status %d", op, status)).
		WithDetail("op", op).
		WithDetail("status", status)
}

// InconsistentState creates an error for an event id missing from the cache.
func InconsistentState(key string, id int64) *Error {
	return New(ErrCodeInconsistentState,
		fmt.Sprintf("event %d not found under %s", id, key)).
		WithDetail("date_key", key).
		WithDetail("event_id", id)
}

// InvalidTimeInput creates an error for an unparseable time-of-day string.
func InvalidTimeInput(input string) *Error {
	return New(ErrCodeInvalidTimeInput, fmt.Sprintf("invalid time input: %q", input)).
		WithDetail("input", input)
}

// InvalidInput creates a generic validation error.
func InvalidInput(reason string) *Error {
	return New(ErrCodeInvalidInput, reason)
}

// InvalidTransition creates an edit session transition error.
func InvalidTransition(from, action string) *Error {
	return New(ErrCodeInvalidTransition,
		fmt.Sprintf("cannot %s while %s", action, from)).
		WithDetail("state", from).
		WithDetail("action", action)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *Error {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// MissingTodo creates an error for a todo id absent from the local list.
func MissingTodo(id int64) *Error {
	return New(ErrCodeInconsistentState, fmt.Sprintf("todo %d not found", id)).
		WithDetail("todo_id", id)
}
