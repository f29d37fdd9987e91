// Package grid projects the event cache and icon indexes into a 7-column
// month view. Everything here is pure; callers pass read-only sources.
package grid

import (
	"plancal/internal/datekey"
	"plancal/internal/model"
)

// MaxVisible is how many events a cell shows before collapsing to one
// event plus an overflow marker.
const MaxVisible = 2

// Weekday tints.
const (
	TintSunday   = "sun"
	TintSaturday = "sat"
	TintDefault  = "default"
)

// EventSource yields the time-ordered events of a day.
type EventSource interface {
	Events(k datekey.Key) []model.Event
}

// IconSource yields a day's icon index, if any.
type IconSource interface {
	Index(k datekey.Key) (int, bool)
}

// Cell is one day of the month.
type Cell struct {
	Key     datekey.Key   `json:"date_key"`
	Day     int           `json:"day"`
	Weekday int           `json:"weekday"`
	Tint    string        `json:"tint"`
	Events  []model.Event `json:"events"`
	Total   int           `json:"total"`
	// Hidden is how many events sit behind the overflow marker.
	Hidden   int    `json:"hidden"`
	Overflow bool   `json:"overflow"`
	Icon     string `json:"icon,omitempty"`
	// IconIndex is nil whenever Icon is empty.
	IconIndex *int `json:"icon_index,omitempty"`
}

// Grid is a rendered month.
type Grid struct {
	Year int `json:"year"`
	// Month is 1-based.
	Month   int    `json:"month"`
	Leading int    `json:"leading_blanks"`
	Weeks   int    `json:"weeks"`
	Cells   []Cell `json:"cells"`
}

// HiddenCount sums the overflowed events of the month.
func (g Grid) HiddenCount() int {
	n := 0
	for _, c := range g.Cells {
		n += c.Hidden
	}
	return n
}

// Cell returns the cell for day (1-based).
func (g Grid) Cell(day int) (Cell, bool) {
	if day < 1 || day > len(g.Cells) {
		return Cell{}, false
	}
	return g.Cells[day-1], true
}

// Project renders (year, month0). A day without events never shows an
// icon, whatever the icon source holds for it.
func Project(year, month0 int, events EventSource, icons IconSource) Grid {
	leading := datekey.FirstWeekday(year, month0)
	n := datekey.DaysIn(year, month0)

	g := Grid{
		Year:    year,
		Month:   month0 + 1,
		Leading: leading,
		Weeks:   (leading + n + 6) / 7,
		Cells:   make([]Cell, 0, n),
	}

	for day := 1; day <= n; day++ {
		k := datekey.Encode(year, month0, day)
		wd := (leading + day - 1) % 7
		list := events.Events(k)

		cell := Cell{
			Key:     k,
			Day:     day,
			Weekday: wd,
			Tint:    tint(wd),
			Events:  visible(list),
			Total:   len(list),
		}
		cell.Hidden = cell.Total - len(cell.Events)
		cell.Overflow = cell.Total > MaxVisible

		if cell.Total > 0 && icons != nil {
			if idx, ok := icons.Index(k); ok {
				if name := model.IconName(idx); name != "" {
					i := idx
					cell.Icon = name
					cell.IconIndex = &i
				}
			}
		}
		g.Cells = append(g.Cells, cell)
	}
	return g
}

func visible(list []model.Event) []model.Event {
	if len(list) == 0 {
		return []model.Event{}
	}
	show := MaxVisible
	if len(list) > MaxVisible {
		show = 1
	}
	if show > len(list) {
		show = len(list)
	}
	out := make([]model.Event, show)
	copy(out, list[:show])
	return out
}

func tint(weekday int) string {
	switch weekday {
	case 0:
		return TintSunday
	case 6:
		return TintSaturday
	default:
		return TintDefault
	}
}
