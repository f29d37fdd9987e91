package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Event is one timed entry as stored by the remote store.
//
// StartDate / EndDate stay in the storage format (UTC); the display day is
// derived from StartDate by the tz package and never from EndDate.
type Event struct {
	// ID is assigned by the remote store; 0 means not yet assigned.
	ID          int64  `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	// Time is zero-padded 24-hour HH:MM:SS so that string order is time order.
	Time         string `json:"time"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	AllDay       Flag   `json:"all_day"`
	Color        Color  `json:"color"`
	CalendarIcon *int   `json:"calendar_icon"`
}

// HasID reports whether the remote store has assigned an id.
func (e Event) HasID() bool { return e.ID != 0 }

// Flag is a boolean that the store keeps as a 0/1 integer column.
// It decodes from JSON true/false, 0/1 or "0"/"1" and encodes as 0/1.
type Flag bool

func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

func (f *Flag) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	switch string(b) {
	case "true":
		*f = true
	case "false", "null", "":
		*f = false
	default:
		n, err := strconv.Atoi(string(b))
		if err != nil {
			return fmt.Errorf("model: invalid flag %s", string(b))
		}
		*f = n != 0
	}
	return nil
}

// Color is one of the fixed event swatches.
type Color string

const (
	ColorPurple Color = "#7F24A6"
	ColorBlue   Color = "#4563BF"
	ColorGreen  Color = "#39BF73"
	ColorYellow Color = "#F2AC29"
	ColorRed    Color = "#D90404"
)

// Colors lists the swatches in picker order; the first is the default.
var Colors = []Color{ColorPurple, ColorBlue, ColorGreen, ColorYellow, ColorRed}

// DefaultColor is preselected for new drafts.
const DefaultColor = ColorPurple

// Valid reports whether c is one of the swatches.
func (c Color) Valid() bool {
	for _, s := range Colors {
		if s == c {
			return true
		}
	}
	return false
}

// Icon names in index order. IconIndexMap values index this slice.
var Icons = []string{"heart", "cake", "airplane", "beer", "note"}

// IconCount is the size of the icon cycle.
var IconCount = len(Icons)

// NoIcon is the "cleared" sentinel stored for a day without an icon.
const NoIcon = -1

// IconName returns the icon at idx, or "" for NoIcon / out of range.
func IconName(idx int) string {
	if idx < 0 || idx >= len(Icons) {
		return ""
	}
	return Icons[idx]
}

// Listing is the result of a full fetch.
type Listing struct {
	Events []Event `json:"events"`
	// UserID is display-only and passed through untouched.
	UserID json.RawMessage `json:"userId,omitempty"`
}

// Draft holds the editable fields of an event being created or edited.
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	// Time is the raw picker value; it is validated only on save.
	Time   string `json:"time"`
	Color  Color  `json:"color"`
	AllDay bool   `json:"all_day"`
}

// NewDraft returns the blank draft shown for an empty day.
// New events start out flagged all-day.
func NewDraft() Draft {
	return Draft{
		Time:   "00:00:00",
		Color:  DefaultColor,
		AllDay: true,
	}
}

// DraftFrom prefills a draft from an existing event.
func DraftFrom(e Event) Draft {
	d := Draft{
		Title:       e.Title,
		Description: e.Description,
		Time:        e.Time,
		Color:       e.Color,
		AllDay:      bool(e.AllDay),
	}
	if d.Time == "" {
		d.Time = "00:00:00"
	}
	if !d.Color.Valid() {
		d.Color = DefaultColor
	}
	return d
}
