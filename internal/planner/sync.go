package planner

import (
	"context"

	"plancal/internal/datekey"
	apperrors "plancal/internal/errors"
	appLog "plancal/internal/log"
	"plancal/internal/model"
	"plancal/internal/session"
	"plancal/internal/timefmt"
)

// Save sends the open draft to the remote store. Create and update are
// pessimistic: the cache changes only once the store has accepted the
// record. On failure the session returns to creating/editing with the
// draft intact.
//
// A response that arrives after the session was cancelled or replaced is
// not applied; if the store accepted it, the month is refetched instead.
func (p *Planner) Save(ctx context.Context) error {
	p.mu.Lock()
	ticket, err := p.session.BeginSave()
	if err != nil {
		p.mu.Unlock()
		return err
	}

	ev, err := p.buildEventLocked(ticket)
	if err != nil {
		p.session.Finish(ticket, err)
		p.mu.Unlock()
		return err
	}

	if ticket.Action == session.ActionUpdate {
		if _, _, ok := p.findLocked(ticket.Key, ticket.EventID); !ok {
			p.session.Cancel()
			p.mu.Unlock()
			return p.inconsistent(ctx, ticket)
		}
	}
	p.mu.Unlock()

	switch ticket.Action {
	case session.ActionCreate:
		return p.finishCreate(ctx, ticket, ev)
	default:
		return p.finishUpdate(ctx, ticket, ev)
	}
}

func (p *Planner) finishCreate(ctx context.Context, ticket session.Ticket, ev model.Event) error {
	id, err := p.remote.Create(ctx, ev)

	p.mu.Lock()
	if !p.session.Matches(ticket) {
		p.mu.Unlock()
		appLog.Warn("create response arrived for a closed session", "date_key", ticket.Key, "ok", err == nil)
		if err == nil {
			return p.Refresh(ctx)
		}
		return nil
	}
	if err != nil {
		p.session.Finish(ticket, err)
		p.mu.Unlock()
		return err
	}

	ev.ID = id
	p.storeCreatedLocked(ticket.Key, ev)
	p.session.Finish(ticket, nil)
	p.mu.Unlock()

	appLog.Info("event created", "event_id", id, "date_key", ticket.Key)
	return nil
}

func (p *Planner) finishUpdate(ctx context.Context, ticket session.Ticket, ev model.Event) error {
	err := p.remote.Update(ctx, ev)

	p.mu.Lock()
	if !p.session.Matches(ticket) {
		p.mu.Unlock()
		appLog.Warn("update response arrived for a closed session", "event_id", ticket.EventID, "ok", err == nil)
		if err == nil {
			return p.Refresh(ctx)
		}
		return nil
	}
	if err != nil {
		p.session.Finish(ticket, err)
		p.mu.Unlock()
		return err
	}

	p.session.Finish(ticket, nil)
	if rerr := p.events.Replace(ticket.Key, ticket.EventID, ev); rerr != nil {
		p.mu.Unlock()
		appLog.Error("updated event vanished from cache", rerr, "event_id", ticket.EventID)
		return p.refetchAfter(ctx, rerr)
	}
	p.mu.Unlock()

	appLog.Info("event updated", "event_id", ticket.EventID, "date_key", ticket.Key)
	return nil
}

// Delete removes the event being edited. The removal is optimistic: the
// event leaves the cache before the request is sent and is put back at its
// former position if the store rejects it. When the day ends up empty its
// icon is cleared once the store confirms.
func (p *Planner) Delete(ctx context.Context) error {
	p.mu.Lock()
	ticket, err := p.session.BeginDelete()
	if err != nil {
		p.mu.Unlock()
		return err
	}

	removed, index, _, err := p.events.Remove(ticket.Key, ticket.EventID)
	if err != nil {
		p.session.Cancel()
		p.mu.Unlock()
		return p.inconsistent(ctx, ticket)
	}
	p.mu.Unlock()

	err = p.remote.Delete(ctx, ticket.EventID)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		// A refetch may have brought the event back already.
		if _, _, ok := p.events.Find(ticket.EventID); !ok {
			p.events.Restore(ticket.Key, removed, index)
		}
		p.session.Finish(ticket, err)
		appLog.Error("event delete failed; restored", err, "event_id", ticket.EventID, "date_key", ticket.Key)
		return err
	}

	// A refetch that ran while the request was in flight may have brought
	// the event back.
	if k, _, ok := p.events.Find(ticket.EventID); ok {
		if _, _, _, rerr := p.events.Remove(k, ticket.EventID); rerr != nil {
			appLog.Error("deleted event could not be dropped from cache", rerr, "event_id", ticket.EventID)
		}
	}
	if p.events.Count(ticket.Key) == 0 {
		p.icons.Clear(ticket.Key)
	}
	p.session.Finish(ticket, nil)
	appLog.Info("event deleted", "event_id", ticket.EventID, "date_key", ticket.Key)
	return nil
}

// storeCreatedLocked caches a record the store has just accepted. A refetch
// that completed while the create was in flight may already hold it, so the
// id is replaced rather than duplicated.
func (p *Planner) storeCreatedLocked(k datekey.Key, ev model.Event) {
	if prev, _, ok := p.events.Find(ev.ID); ok {
		if _, _, _, err := p.events.Remove(prev, ev.ID); err != nil {
			appLog.Error("created event could not be replaced in cache", err, "event_id", ev.ID)
		}
	}
	p.events.Insert(k, ev)
}

// buildEventLocked turns the ticket's draft into the record sent to the
// store. Updates start from the cached original so untouched fields
// (calendar_icon) survive.
func (p *Planner) buildEventLocked(t session.Ticket) (model.Event, error) {
	clock, err := timefmt.Parse(t.Draft.Time)
	if err != nil {
		return model.Event{}, err
	}
	start, end, err := p.tz.StorageRange(t.Key, clock)
	if err != nil {
		return model.Event{}, apperrors.InvalidInput(err.Error())
	}

	var ev model.Event
	if t.Action == session.ActionUpdate {
		ev = t.Original
		if cur, _, ok := p.findLocked(t.Key, t.EventID); ok {
			ev = cur
		}
	}
	ev.Title = t.Draft.Title
	ev.Description = t.Draft.Description
	ev.Time = clock
	ev.StartDate = start
	ev.EndDate = end
	ev.AllDay = model.Flag(t.Draft.AllDay)
	ev.Color = t.Draft.Color
	if !ev.Color.Valid() {
		ev.Color = model.DefaultColor
	}
	return ev, nil
}

// inconsistent reports an id missing from the cache and refetches.
func (p *Planner) inconsistent(ctx context.Context, t session.Ticket) error {
	err := apperrors.InconsistentState(string(t.Key), t.EventID)
	appLog.Error("event missing from cache; refetching", err, "action", string(t.Action))
	return p.refetchAfter(ctx, err)
}

// refetchAfter refreshes the month and returns cause; a failed refresh is
// already recorded in the error flag.
func (p *Planner) refetchAfter(ctx context.Context, cause error) error {
	if ferr := p.Refresh(ctx); ferr != nil {
		appLog.Warn("refetch after inconsistency failed", "error", ferr.Error())
	}
	return cause
}
