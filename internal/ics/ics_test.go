package ics

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plancal/internal/datekey"
	"plancal/internal/model"
	"plancal/internal/tz"
)

func seoul(t *testing.T) *tz.Normalizer {
	t.Helper()
	n, err := tz.New("Asia/Seoul")
	require.NoError(t, err)
	return n
}

func TestExport(t *testing.T) {
	icon := 3
	events := []model.Event{
		{
			ID: 7, Title: "dinner", Description: "at home", Time: "19:00:00",
			StartDate: "2024-11-05 10:00:00", EndDate: "2024-11-05 11:00:00",
			Color: model.ColorRed, CalendarIcon: &icon,
		},
		{ID: 8, Title: "bad", StartDate: "yesterday"},
		{Title: "unsaved", StartDate: "2024-11-05 10:00:00"},
	}

	out := Export(events, seoul(t), time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC))
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "X-WR-TIMEZONE:Asia/Seoul")

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	vevents := cal.Events()
	require.Len(t, vevents, 1)

	ve := vevents[0]
	assert.Equal(t, UID(7), ve.GetProperty(ical.ComponentPropertyUniqueId).Value)
	assert.Equal(t, "dinner", ve.GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "20241105T100000Z", ve.GetProperty(ical.ComponentPropertyDtStart).Value)
	assert.Equal(t, "20241105T110000Z", ve.GetProperty(ical.ComponentPropertyDtEnd).Value)
	assert.Equal(t, "#D90404", ve.GetProperty(propColor).Value)
	assert.Equal(t, "beer", ve.GetProperty(propIcon).Value)
}

func TestExportFillsMissingEnd(t *testing.T) {
	out := Export([]model.Event{{ID: 1, Title: "x", StartDate: "2024-11-05T10:00:00Z"}}, seoul(t), time.Now())
	assert.Contains(t, out, "DTEND:20241105T110000Z")
}

func crlf(lines ...string) []byte {
	return []byte(strings.Join(lines, "\r\n") + "\r\n")
}

func TestParse(t *testing.T) {
	body := crlf(
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"UID:a@test",
		"DTSTAMP:20241101T000000Z",
		"DTSTART:20241104T163000Z",
		"DTEND:20241104T173000Z",
		"SUMMARY:late",
		"COLOR:#39BF73",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:b@test",
		"DTSTAMP:20241101T000000Z",
		"DTSTART;VALUE=DATE:20241106",
		"SUMMARY:holiday",
		"RRULE:FREQ=YEARLY",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"DTSTAMP:20241101T000000Z",
		"DTSTART:20241107T000000Z",
		"SUMMARY:no uid",
		"END:VEVENT",
		"END:VCALENDAR",
	)

	got, err := Parse(body, seoul(t))
	require.NoError(t, err)
	require.Len(t, got, 2)

	late := got[0]
	assert.Equal(t, "a@test", late.UID)
	assert.Equal(t, datekey.Key("11/05/2024"), late.Key)
	assert.Equal(t, "01:30:00", late.Event.Time)
	assert.Equal(t, "2024-11-04 16:30:00", late.Event.StartDate)
	assert.Equal(t, "2024-11-04 17:30:00", late.Event.EndDate)
	assert.Equal(t, model.ColorGreen, late.Event.Color)
	assert.False(t, late.Event.HasID())

	holiday := got[1]
	assert.Equal(t, datekey.Key("11/06/2024"), holiday.Key)
	assert.Equal(t, "00:00:00", holiday.Event.Time)
	assert.Equal(t, model.Flag(true), holiday.Event.AllDay)
	assert.Equal(t, "2024-11-05 15:00:00", holiday.Event.StartDate)
	assert.Equal(t, model.DefaultColor, holiday.Event.Color)
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse(nil, seoul(t))
	assert.Error(t, err)
}

func TestExportThenParse(t *testing.T) {
	n := seoul(t)
	out := Export([]model.Event{{
		ID: 3, Title: "round", Time: "09:15:00",
		StartDate: "2024-11-05 00:15:00", EndDate: "2024-11-05 01:15:00",
		Color: model.ColorYellow,
	}}, n, time.Now())

	got, err := Parse([]byte(out), n)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, datekey.Key("11/05/2024"), got[0].Key)
	assert.Equal(t, "09:15:00", got[0].Event.Time)
	assert.Equal(t, model.ColorYellow, got[0].Event.Color)
	assert.Equal(t, "round", got[0].Event.Title)
}
