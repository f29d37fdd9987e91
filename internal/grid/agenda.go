package grid

import (
	"sort"

	"plancal/internal/datekey"
	"plancal/internal/model"
	"plancal/internal/tz"
)

// AgendaItem is one row of the flat schedule listing.
type AgendaItem struct {
	Key   datekey.Key `json:"date_key"`
	Label string      `json:"label"`
	Event model.Event `json:"event"`
}

// Agenda flattens events into chronological order by normalized start,
// breaking ties by Time then by input order. Events whose start cannot be
// parsed are dropped.
func Agenda(events []model.Event, n *tz.Normalizer) []AgendaItem {
	type row struct {
		item AgendaItem
		civ  tz.Civil
	}
	rows := make([]row, 0, len(events))
	for _, ev := range events {
		civ, err := n.Normalize(ev.StartDate)
		if err != nil {
			continue
		}
		label, _ := n.Label(ev.StartDate)
		rows = append(rows, row{
			item: AgendaItem{Key: civ.Key, Label: label, Event: ev},
			civ:  civ,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].civ.Time, rows[j].civ.Time
		if !a.Equal(b) {
			return a.Before(b)
		}
		return rows[i].item.Event.Time < rows[j].item.Event.Time
	})

	out := make([]AgendaItem, len(rows))
	for i, r := range rows {
		out[i] = r.item
	}
	return out
}
