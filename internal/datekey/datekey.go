// Package datekey converts calendar days to and from the canonical
// MM/DD/YYYY key shared by the event cache, the icon store and the grid.
package datekey

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// Key is a display-timezone calendar day formatted as MM/DD/YYYY.
type Key string

// Encode builds a Key. month0 is 0-based (January = 0).
// Callers pass valid calendar components.
func Encode(year, month0, day int) Key {
	return Key(fmt.Sprintf("%02d/%02d/%d", month0+1, day, year))
}

// Decode is the left inverse of Encode.
func Decode(k Key) (year, month0, day int, err error) {
	parts := strings.Split(string(k), "/")
	if len(parts) != 3 || len(parts[0]) != 2 || len(parts[1]) != 2 || parts[2] == "" {
		return 0, 0, 0, fmt.Errorf("datekey: malformed key %q", string(k))
	}
	m, errM := strconv.Atoi(parts[0])
	d, errD := strconv.Atoi(parts[1])
	y, errY := strconv.Atoi(parts[2])
	if errM != nil || errD != nil || errY != nil {
		return 0, 0, 0, fmt.Errorf("datekey: malformed key %q", string(k))
	}
	if m < 1 || m > 12 || d < 1 || d > DaysIn(y, m-1) {
		return 0, 0, 0, fmt.Errorf("datekey: out of range key %q", string(k))
	}
	return y, m - 1, d, nil
}

// FromTime returns the key of t's civil date in t's own location.
func FromTime(t time.Time) Key {
	return Encode(t.Year(), int(t.Month())-1, t.Day())
}

// Date returns midnight of the keyed day in loc.
func (k Key) Date(loc *time.Location) (time.Time, error) {
	y, m0, d, err := Decode(k)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(y, time.Month(m0+1), d, 0, 0, 0, 0, loc), nil
}

func (k Key) String() string { return string(k) }

// DaysIn returns the number of days in the month.
func DaysIn(year, month0 int) int {
	return time.Date(year, time.Month(month0+2), 0, 0, 0, 0, 0, time.UTC).Day()
}

// FirstWeekday is the weekday of the 1st (Sunday = 0).
func FirstWeekday(year, month0 int) int {
	return int(time.Date(year, time.Month(month0+1), 1, 0, 0, 0, 0, time.UTC).Weekday())
}

// MonthKeys lists every day of the month in calendar order.
func MonthKeys(year, month0 int) ([]Key, error) {
	first := time.Date(year, time.Month(month0+1), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: first,
		Until:   last,
	})
	if err != nil {
		return nil, fmt.Errorf("month keys %04d-%02d: %w", year, month0+1, err)
	}

	days := r.All()
	keys := make([]Key, 0, len(days))
	for _, d := range days {
		keys = append(keys, FromTime(d))
	}
	return keys, nil
}
