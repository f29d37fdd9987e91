package refresh

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "plancal/internal/errors"
)

type countingTarget struct {
	calls atomic.Int64
	err   error
}

func (c *countingTarget) Refresh(ctx context.Context) error {
	c.calls.Add(1)
	return c.err
}

func TestEnabled(t *testing.T) {
	assert.False(t, Enabled(""))
	assert.False(t, Enabled("off"))
	assert.False(t, Enabled(" OFF "))
	assert.True(t, Enabled("*/15 * * * *"))
}

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New("every now and then", &countingTarget{}, 0)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeConfigInvalid))
}

func TestNext(t *testing.T) {
	s, err := New("*/15 * * * *", &countingTarget{}, 0)
	require.NoError(t, err)
	from := time.Date(2024, 11, 5, 10, 7, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 11, 5, 10, 15, 0, 0, time.UTC), s.Next(from))
}

func TestRunOnce(t *testing.T) {
	target := &countingTarget{}
	s, err := New("@hourly", target, time.Second)
	require.NoError(t, err)

	require.NoError(t, s.RunOnce(context.Background()))
	target.err = errors.New("down")
	assert.Error(t, s.RunOnce(context.Background()))

	assert.Equal(t, int64(2), target.calls.Load())
	assert.Equal(t, int64(2), s.Runs())
}

func TestStartTicksUntilCancelled(t *testing.T) {
	target := &countingTarget{}
	s, err := New("@every 1s", target, time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	require.Eventually(t, func() bool { return target.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestAllRefreshesEveryTarget(t *testing.T) {
	boom := errors.New("boom")
	first := &countingTarget{err: boom}
	second := &countingTarget{}

	err := All{first, second}.Refresh(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(1), first.calls.Load())
	assert.Equal(t, int64(1), second.calls.Load())

	assert.NoError(t, All{second}.Refresh(context.Background()))
}
