// Package cache holds events grouped by display day.
//
// A Cache is not safe for concurrent use; the planner owns it and
// serializes access.
package cache

import (
	"fmt"
	"sort"

	"plancal/internal/datekey"
	apperrors "plancal/internal/errors"
	"plancal/internal/model"
)

// KeyFunc derives the display day of a stored start instant.
type KeyFunc func(startDate string) (datekey.Key, error)

// Cache maps a DateKey to its events ordered by Time (stable).
type Cache struct {
	days map[datekey.Key][]model.Event
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{days: make(map[datekey.Key][]model.Event)}
}

// Rebuild builds a fresh cache from a full listing. Events whose start
// cannot be keyed are skipped and reported; nothing is merged with any
// earlier cache.
func Rebuild(events []model.Event, keyOf KeyFunc) (*Cache, []error) {
	c := New()
	var errs []error
	for _, ev := range events {
		k, err := keyOf(ev.StartDate)
		if err != nil {
			errs = append(errs, fmt.Errorf("event %d: %w", ev.ID, err))
			continue
		}
		c.days[k] = append(c.days[k], ev)
	}
	for k := range c.days {
		c.sortDay(k)
	}
	return c, errs
}

// Events returns a copy of the day's events.
func (c *Cache) Events(k datekey.Key) []model.Event {
	list := c.days[k]
	if len(list) == 0 {
		return nil
	}
	out := make([]model.Event, len(list))
	copy(out, list)
	return out
}

// Count is the number of events on the day.
func (c *Cache) Count(k datekey.Key) int { return len(c.days[k]) }

// Len is the number of events in the cache.
func (c *Cache) Len() int {
	n := 0
	for _, l := range c.days {
		n += len(l)
	}
	return n
}

// Keys lists days holding at least one event, in no particular order.
func (c *Cache) Keys() []datekey.Key {
	out := make([]datekey.Key, 0, len(c.days))
	for k, l := range c.days {
		if len(l) > 0 {
			out = append(out, k)
		}
	}
	return out
}

// Find locates an event by id across all days.
func (c *Cache) Find(id int64) (datekey.Key, model.Event, bool) {
	for k, l := range c.days {
		for _, ev := range l {
			if ev.ID == id {
				return k, ev, true
			}
		}
	}
	return "", model.Event{}, false
}

// Insert appends the event to the day and re-sorts that day only.
func (c *Cache) Insert(k datekey.Key, ev model.Event) {
	c.days[k] = append(c.days[k], ev)
	c.sortDay(k)
}

// Replace swaps the event with the given id for updated. An id that is not
// cached under k is an INCONSISTENT_STATE error and leaves the cache as is.
func (c *Cache) Replace(k datekey.Key, id int64, updated model.Event) error {
	idx := c.indexOf(k, id)
	if idx < 0 {
		return apperrors.InconsistentState(string(k), id)
	}
	c.days[k][idx] = updated
	c.sortDay(k)
	return nil
}

// Remove drops the event from the day, returning it with its former
// position. emptied is true when the day has no events left, which is the
// caller's cue to clear the day's icon.
func (c *Cache) Remove(k datekey.Key, id int64) (removed model.Event, index int, emptied bool, err error) {
	idx := c.indexOf(k, id)
	if idx < 0 {
		return model.Event{}, -1, false, apperrors.InconsistentState(string(k), id)
	}
	list := c.days[k]
	removed = list[idx]
	rest := make([]model.Event, 0, len(list)-1)
	rest = append(rest, list[:idx]...)
	rest = append(rest, list[idx+1:]...)
	if len(rest) == 0 {
		delete(c.days, k)
		return removed, idx, true, nil
	}
	c.days[k] = rest
	return removed, idx, false, nil
}

// Restore reinserts a removed event at its former index (clamped), then
// re-sorts so ordering still holds if the day changed in between.
func (c *Cache) Restore(k datekey.Key, ev model.Event, index int) {
	list := c.days[k]
	if index < 0 || index > len(list) {
		index = len(list)
	}
	out := make([]model.Event, 0, len(list)+1)
	out = append(out, list[:index]...)
	out = append(out, ev)
	out = append(out, list[index:]...)
	c.days[k] = out
	c.sortDay(k)
}

func (c *Cache) indexOf(k datekey.Key, id int64) int {
	for i, ev := range c.days[k] {
		if ev.ID == id {
			return i
		}
	}
	return -1
}

func (c *Cache) sortDay(k datekey.Key) {
	list := c.days[k]
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Time < list[j].Time
	})
}
