package log

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	SetLevel(LevelWarn)
	defer SetLevel(LevelInfo)

	Info("hidden", "k", 1)
	Warn("shown warn", "date_key", "11/05/2024")
	Error("shown error", errors.New("boom"), "op", "fetch")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown warn")
	assert.Contains(t, out, "date_key=11/05/2024")
	assert.Contains(t, out, "err=boom")
	assert.Contains(t, out, "op=fetch")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, LevelError, ParseLevel("ERROR"))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}
