package planner

import (
	"context"
	"sort"

	"plancal/internal/config"
	"plancal/internal/datekey"
	apperrors "plancal/internal/errors"
	appLog "plancal/internal/log"
	"plancal/internal/model"
	"plancal/internal/session"
)

// ClickDay opens a create session for the day. Under the day-click advance
// policy the day's icon also moves on, once the session is open; a failed
// icon sync is logged and does not close the session.
func (p *Planner) ClickDay(ctx context.Context, k datekey.Key) (session.Snapshot, error) {
	if err := validKey(k); err != nil {
		return session.Snapshot{}, err
	}
	p.mu.Lock()
	if err := p.session.OpenCreate(k); err != nil {
		snap := p.session.Snapshot()
		p.mu.Unlock()
		return snap, err
	}
	p.mu.Unlock()

	if p.advance == config.IconAdvanceDay {
		if _, err := p.advanceIcon(ctx, k); err != nil {
			appLog.Warn("icon advance on day click failed", "date_key", k, "error", err.Error())
		}
	}
	return p.Session(), nil
}

// OpenEvent opens an edit session for a cached event.
func (p *Planner) OpenEvent(k datekey.Key, id int64) (session.Snapshot, error) {
	if err := validKey(k); err != nil {
		return session.Snapshot{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	ev, _, ok := p.findLocked(k, id)
	if !ok {
		return p.session.Snapshot(), apperrors.InconsistentState(string(k), id)
	}
	if err := p.session.OpenEdit(k, ev); err != nil {
		return p.session.Snapshot(), err
	}
	return p.session.Snapshot(), nil
}

// DayEvents is the full list behind a cell's overflow marker.
func (p *Planner) DayEvents(k datekey.Key) ([]model.Event, error) {
	if err := validKey(k); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	list := p.events.Events(k)
	if list == nil {
		list = []model.Event{}
	}
	return list, nil
}

// UpdateDraft replaces the open session's draft.
func (p *Planner) UpdateDraft(d model.Draft) (session.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.session.SetDraft(d)
	return p.session.Snapshot(), err
}

// Cancel closes the session from any state, discarding the draft.
func (p *Planner) Cancel() session.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session.Cancel()
	return p.session.Snapshot()
}

// Session returns the session snapshot.
func (p *Planner) Session() session.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session.Snapshot()
}

// IconResult is the outcome of an icon click.
type IconResult struct {
	Key   datekey.Key `json:"date_key"`
	Index int         `json:"index"`
	Icon  string      `json:"icon"`
	// Applied is false when the click arrived while a fetch was loading.
	Applied bool `json:"applied"`
}

// ClickIcon advances the day's icon. It bypasses the edit session.
//
// Under the remote-synced policy the new index is also written to the
// day's first event as calendar_icon. The local index is the source of
// truth either way; a failed remote write is returned but not rolled back.
func (p *Planner) ClickIcon(ctx context.Context, k datekey.Key) (IconResult, error) {
	if err := validKey(k); err != nil {
		return IconResult{}, err
	}
	return p.advanceIcon(ctx, k)
}

func (p *Planner) advanceIcon(ctx context.Context, k datekey.Key) (IconResult, error) {
	p.mu.Lock()
	idx, ok := p.icons.Advance(k)
	res := IconResult{Key: k, Index: idx, Icon: model.IconName(idx), Applied: ok}
	if !ok {
		if cur, has := p.icons.Index(k); has {
			res.Index, res.Icon = cur, model.IconName(cur)
		}
		p.mu.Unlock()
		return res, nil
	}

	var target model.Event
	push := false
	if p.policy == config.IconPersistenceRemote {
		if list := p.events.Events(k); len(list) > 0 {
			target = list[0]
			v := idx
			target.CalendarIcon = &v
			push = true
		}
	}
	p.mu.Unlock()

	if !push {
		return res, nil
	}

	if err := p.remote.Update(ctx, target); err != nil {
		appLog.Error("icon sync failed", err, "date_key", k, "event_id", target.ID)
		return res, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	cur, _, found := p.findLocked(k, target.ID)
	if !found {
		// Dropped by a refetch or a delete in the meantime.
		appLog.Debug("icon synced to an event no longer cached", "date_key", k, "event_id", target.ID)
		return res, nil
	}
	cur.CalendarIcon = target.CalendarIcon
	if err := p.events.Replace(k, target.ID, cur); err != nil {
		appLog.Error("icon sync could not update cached event", err, "date_key", k, "event_id", target.ID)
	}
	return res, nil
}

// findLocked looks up an event under k.
func (p *Planner) findLocked(k datekey.Key, id int64) (model.Event, int, bool) {
	for i, ev := range p.events.Events(k) {
		if ev.ID == id {
			return ev, i, true
		}
	}
	return model.Event{}, -1, false
}

func validKey(k datekey.Key) error {
	if _, _, _, err := datekey.Decode(k); err != nil {
		return apperrors.InvalidInput(err.Error())
	}
	return nil
}

// sortKeys orders keys chronologically.
func sortKeys(keys []datekey.Key) {
	sort.Slice(keys, func(i, j int) bool {
		yi, mi, di, _ := datekey.Decode(keys[i])
		yj, mj, dj, _ := datekey.Decode(keys[j])
		if yi != yj {
			return yi < yj
		}
		if mi != mj {
			return mi < mj
		}
		return di < dj
	})
}
