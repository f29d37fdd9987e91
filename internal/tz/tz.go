// Package tz converts stored UTC instants into the display timezone and back.
package tz

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // display zone must resolve without a system zoneinfo

	"plancal/internal/datekey"
)

// StorageLayout is the civil UTC timestamp format sent to the remote store.
const StorageLayout = "2006-01-02 15:04:05"

// TimeLayout is the zero-padded 24-hour time-of-day format of Event.Time.
const TimeLayout = "15:04:05"

// EventDuration is the fixed length of a created or updated event.
const EventDuration = time.Hour

// layouts accepted when reading instants back from the store. Layouts
// without an offset are interpreted as UTC.
var layouts = []string{
	time.RFC3339,
	StorageLayout,
	"2006-01-02T15:04:05",
}

// Civil is a display-timezone date and time of day.
type Civil struct {
	Year    int
	Month   time.Month
	Day     int
	Hour    int
	Minute  int
	Second  int
	Weekday time.Weekday
	Key     datekey.Key
	Time    time.Time
}

// Clock returns the HH:MM:SS part.
func (c Civil) Clock() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

// Normalizer maps storage instants into one display location.
type Normalizer struct {
	loc *time.Location
}

// New loads the named IANA zone.
func New(name string) (*Normalizer, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("tz: load location %q: %w", name, err)
	}
	return &Normalizer{loc: loc}, nil
}

// NewWithLocation wraps an already resolved location.
func NewWithLocation(loc *time.Location) *Normalizer {
	return &Normalizer{loc: loc}
}

// Location returns the display location.
func (n *Normalizer) Location() *time.Location { return n.loc }

// Parse reads a storage instant as an absolute time.
func Parse(instant string) (time.Time, error) {
	s := strings.TrimSpace(instant)
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("tz: unrecognized instant %q", instant)
}

// Normalize converts a stored instant into display-zone civil fields.
func (n *Normalizer) Normalize(instant string) (Civil, error) {
	t, err := Parse(instant)
	if err != nil {
		return Civil{}, err
	}
	return n.civil(t), nil
}

// Key is shorthand for Normalize(instant).Key.
func (n *Normalizer) Key(instant string) (datekey.Key, error) {
	c, err := n.Normalize(instant)
	if err != nil {
		return "", err
	}
	return c.Key, nil
}

func (n *Normalizer) civil(t time.Time) Civil {
	local := t.In(n.loc)
	return Civil{
		Year:    local.Year(),
		Month:   local.Month(),
		Day:     local.Day(),
		Hour:    local.Hour(),
		Minute:  local.Minute(),
		Second:  local.Second(),
		Weekday: local.Weekday(),
		Key:     datekey.FromTime(local),
		Time:    local,
	}
}

// StorageRange converts a display-zone day and HH:MM:SS time into the
// storage-format start and end (start + EventDuration) in UTC.
func (n *Normalizer) StorageRange(key datekey.Key, clock string) (start, end string, err error) {
	day, err := key.Date(n.loc)
	if err != nil {
		return "", "", err
	}
	tod, err := time.Parse(TimeLayout, clock)
	if err != nil {
		return "", "", fmt.Errorf("tz: bad time of day %q: %w", clock, err)
	}
	local := time.Date(day.Year(), day.Month(), day.Day(), tod.Hour(), tod.Minute(), tod.Second(), 0, n.loc)
	return local.UTC().Format(StorageLayout), local.Add(EventDuration).UTC().Format(StorageLayout), nil
}

// Label renders an instant as a Korean agenda label, e.g. "11월 5일 오전 1시 30분".
func (n *Normalizer) Label(instant string) (string, error) {
	c, err := n.Normalize(instant)
	if err != nil {
		return "", err
	}
	period := "오전"
	if c.Hour >= 12 {
		period = "오후"
	}
	h := c.Hour % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d월 %d일 %s %d시 %d분", int(c.Month), c.Day, period, h, c.Minute), nil
}
