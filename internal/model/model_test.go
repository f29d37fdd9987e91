package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventDecodesStoreRow(t *testing.T) {
	raw := `{"id":7,"title":"Dentist","description":"","time":"01:30:00",
		"start_date":"2024-11-04T16:30:00.000Z","end_date":"2024-11-04T17:30:00.000Z",
		"all_day":1,"color":"#4563BF","calendar_icon":null}`

	var e Event
	require.NoError(t, json.Unmarshal([]byte(raw), &e))
	assert.Equal(t, int64(7), e.ID)
	assert.True(t, bool(e.AllDay))
	assert.Equal(t, ColorBlue, e.Color)
	assert.Nil(t, e.CalendarIcon)
}

func TestFlagForms(t *testing.T) {
	for in, want := range map[string]bool{`true`: true, `false`: false, `0`: false, `1`: true, `"1"`: true, `null`: false} {
		var f Flag
		require.NoError(t, json.Unmarshal([]byte(in), &f), in)
		assert.Equal(t, want, bool(f), in)
	}

	var f Flag
	assert.Error(t, json.Unmarshal([]byte(`"yes"`), &f))

	b, err := json.Marshal(Event{Title: "x", AllDay: true})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"all_day":1`)
	assert.NotContains(t, string(b), `"id"`)
}

func TestDraftFrom(t *testing.T) {
	d := DraftFrom(Event{Title: "t", Color: "#FFFF00"})
	assert.Equal(t, DefaultColor, d.Color)
	assert.Equal(t, "00:00:00", d.Time)

	assert.Equal(t, "", IconName(NoIcon))
	assert.Equal(t, "note", IconName(4))
}
