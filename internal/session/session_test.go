package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plancal/internal/datekey"
	apperrors "plancal/internal/errors"
	"plancal/internal/model"
)

const day = datekey.Key("11/05/2024")

func existing() model.Event {
	return model.Event{ID: 7, Title: "dinner", Time: "19:00:00", Color: model.ColorGreen}
}

func TestCreateSaveSuccess(t *testing.T) {
	s := New()
	require.NoError(t, s.OpenCreate(day))
	assert.Equal(t, Creating, s.Mode())
	assert.Equal(t, model.NewDraft(), s.Draft())

	d := s.Draft()
	d.Title = "lunch"
	require.NoError(t, s.SetDraft(d))

	ticket, err := s.BeginSave()
	require.NoError(t, err)
	assert.Equal(t, ActionCreate, ticket.Action)
	assert.Equal(t, day, ticket.Key)
	assert.Equal(t, "lunch", ticket.Draft.Title)
	assert.Equal(t, Saving, s.Mode())

	assert.True(t, s.Finish(ticket, nil))
	assert.Equal(t, Idle, s.Mode())
	assert.Equal(t, model.Draft{}, s.Draft())
}

func TestSaveFailureKeepsDraft(t *testing.T) {
	s := New()
	require.NoError(t, s.OpenEdit(day, existing()))
	d := s.Draft()
	assert.Equal(t, "dinner", d.Title)
	d.Title = "late dinner"
	require.NoError(t, s.SetDraft(d))

	ticket, err := s.BeginSave()
	require.NoError(t, err)
	assert.Equal(t, ActionUpdate, ticket.Action)
	assert.Equal(t, int64(7), ticket.EventID)

	assert.True(t, s.Finish(ticket, errors.New("boom")))
	assert.Equal(t, Editing, s.Mode())
	assert.Equal(t, "late dinner", s.Draft().Title)
	assert.Equal(t, "boom", s.Snapshot().Error)

	// retry succeeds
	ticket, err = s.BeginSave()
	require.NoError(t, err)
	assert.True(t, s.Finish(ticket, nil))
	assert.Equal(t, Idle, s.Mode())
}

func TestSingleFlightWhileSaving(t *testing.T) {
	s := New()
	require.NoError(t, s.OpenEdit(day, existing()))
	_, err := s.BeginSave()
	require.NoError(t, err)

	_, err = s.BeginSave()
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeInvalidTransition))
	_, err = s.BeginDelete()
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeInvalidTransition))
	assert.Error(t, s.SetDraft(model.NewDraft()))
	assert.Error(t, s.OpenCreate(day))
}

func TestDeleteOnlyFromEditing(t *testing.T) {
	s := New()
	_, err := s.BeginDelete()
	assert.Error(t, err)

	require.NoError(t, s.OpenCreate(day))
	_, err = s.BeginDelete()
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeInvalidTransition))

	s.Cancel()
	require.NoError(t, s.OpenEdit(day, existing()))
	ticket, err := s.BeginDelete()
	require.NoError(t, err)
	assert.Equal(t, ActionDelete, ticket.Action)
	assert.Equal(t, existing(), ticket.Original)
}

func TestLateResponseAfterCancelIsIgnored(t *testing.T) {
	s := New()
	require.NoError(t, s.OpenCreate(day))
	stale, err := s.BeginSave()
	require.NoError(t, err)

	s.Cancel()
	assert.Equal(t, Idle, s.Mode())
	assert.False(t, s.Matches(stale))
	assert.False(t, s.Finish(stale, nil))

	// A new session for the same day does not adopt the old ticket.
	require.NoError(t, s.OpenCreate(day))
	_, err = s.BeginSave()
	require.NoError(t, err)
	assert.False(t, s.Finish(stale, errors.New("late")))
	assert.Equal(t, Saving, s.Mode())
}

func TestOpenEditRequiresID(t *testing.T) {
	s := New()
	err := s.OpenEdit(day, model.Event{Title: "unsaved"})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeInvalidInput))
	assert.Equal(t, Idle, s.Mode())
}

func TestSetDraftValidatesColor(t *testing.T) {
	s := New()
	require.NoError(t, s.OpenCreate(day))

	err := s.SetDraft(model.Draft{Title: "x", Color: "#000000"})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeInvalidInput))

	require.NoError(t, s.SetDraft(model.Draft{Title: "x"}))
	assert.Equal(t, model.DefaultColor, s.Draft().Color)
}

func TestSnapshot(t *testing.T) {
	s := New()
	snap := s.Snapshot()
	assert.Equal(t, "idle", snap.Mode)
	assert.Empty(t, snap.ID)

	require.NoError(t, s.OpenEdit(day, existing()))
	_, err := s.BeginSave()
	require.NoError(t, err)
	snap = s.Snapshot()
	assert.Equal(t, "saving", snap.Mode)
	assert.Equal(t, "editing", snap.Prior)
	assert.Equal(t, day, snap.Key)
	assert.NotEmpty(t, snap.ID)
}
