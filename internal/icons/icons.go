// Package icons keeps the per-day icon index, independent of the event
// cache's lifecycle.
package icons

import (
	"strconv"

	"plancal/internal/datekey"
	appLog "plancal/internal/log"
	"plancal/internal/model"
)

// Cache is the in-memory view of icon indexes over a durable Store.
// Values are in [0, model.IconCount) or model.NoIcon. Not safe for
// concurrent use; the planner serializes access.
type Cache struct {
	store   Store
	indexes map[datekey.Key]int
	loading bool
}

// New wraps store. The cache starts out not loading and empty.
func New(store Store) *Cache {
	return &Cache{
		store:   store,
		indexes: make(map[datekey.Key]int),
	}
}

// BeginLoad marks the cache as loading; Advance is a no-op until EndLoad.
func (c *Cache) BeginLoad() { c.loading = true }

// EndLoad clears the loading guard.
func (c *Cache) EndLoad() { c.loading = false }

// Loading reports whether a load is in progress.
func (c *Cache) Loading() bool { return c.loading }

// Hydrate replaces the in-memory view with the stored values for keys.
// Keys without a stored (or parseable) value are omitted rather than
// defaulted.
func (c *Cache) Hydrate(keys []datekey.Key) map[datekey.Key]int {
	out := make(map[datekey.Key]int, len(keys))
	for _, k := range keys {
		raw, ok, err := c.store.Get(string(k))
		if err != nil {
			appLog.Error("icon store read failed", err, "date_key", k)
			continue
		}
		if !ok {
			continue
		}
		idx, err := strconv.Atoi(raw)
		if err != nil || idx < model.NoIcon || idx >= model.IconCount {
			appLog.Warn("ignoring invalid stored icon index", "date_key", k, "value", raw)
			continue
		}
		out[k] = idx
	}

	c.indexes = make(map[datekey.Key]int, len(out))
	for k, v := range out {
		c.indexes[k] = v
	}
	return out
}

// Index returns the current value for the day.
func (c *Cache) Index(k datekey.Key) (int, bool) {
	v, ok := c.indexes[k]
	return v, ok
}

// Snapshot copies the in-memory map.
func (c *Cache) Snapshot() map[datekey.Key]int {
	out := make(map[datekey.Key]int, len(c.indexes))
	for k, v := range c.indexes {
		out[k] = v
	}
	return out
}

// Advance moves the day to the next icon and persists it. A missing entry
// counts as 0, so the first advance yields 1; the cleared sentinel yields 0.
// It returns false without changing anything while loading.
func (c *Cache) Advance(k datekey.Key) (int, bool) {
	if c.loading {
		appLog.Debug("icon advance ignored while loading", "date_key", k)
		return 0, false
	}
	next := Next(c.indexes[k])
	c.indexes[k] = next
	c.persist(k, next)
	return next, true
}

// Clear sets the day to model.NoIcon and persists it.
func (c *Cache) Clear(k datekey.Key) {
	c.indexes[k] = model.NoIcon
	c.persist(k, model.NoIcon)
}

// Next is the successor of cur in the icon cycle.
func Next(cur int) int {
	if cur < 0 {
		return 0
	}
	return (cur + 1) % model.IconCount
}

// persist writes through to the durable store. A failed write keeps the
// in-memory value; the next hydrate reverts to whatever the store holds.
func (c *Cache) persist(k datekey.Key, v int) {
	if err := c.store.Set(string(k), strconv.Itoa(v)); err != nil {
		appLog.Error("icon store write failed", err, "date_key", k, "index", v)
	}
}
