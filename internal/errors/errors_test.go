package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	err := New(ErrCodeInconsistentState, "missing")
	assert.Equal(t, ErrCodeInconsistentState, err.Code)

	cause := fmt.Errorf("connection refused")
	wrapped := NetworkFailure("fetch", cause)
	assert.Equal(t, cause, wrapped.Unwrap())
	assert.True(t, Is(wrapped, ErrCodeNetworkFailure))
	assert.False(t, Is(wrapped, ErrCodeInconsistentState))
	assert.Equal(t, "fetch", wrapped.Details["op"])
}

func TestGetCodeThroughFmtWrap(t *testing.T) {
	inner := InvalidTimeInput("25:99")
	outer := fmt.Errorf("save draft: %w", inner)

	assert.Equal(t, ErrCodeInvalidTimeInput, GetCode(outer))
	assert.True(t, Is(outer, ErrCodeInvalidTimeInput))
	assert.Equal(t, ErrorCode(""), GetCode(fmt.Errorf("plain")))
	assert.Equal(t, ErrorCode(""), GetCode(nil))
}

func TestConstructors(t *testing.T) {
	err := InconsistentState("11/05/2024", 42)
	assert.Equal(t, "11/05/2024", err.Details["date_key"])
	assert.Equal(t, int64(42), err.Details["event_id"])

	err = HTTPStatus("create", 500)
	assert.Equal(t, ErrCodeNetworkFailure, err.Code)
	assert.Equal(t, 500, err.Details["status"])
	assert.Contains(t, err.ToJSON(), "NETWORK_FAILURE")
}
