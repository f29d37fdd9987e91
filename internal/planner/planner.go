// Package planner owns the event cache, the icon sub-cache and the edit
// session, and reconciles them with the remote store.
//
// All state sits behind one mutex that is never held across a network
// call. Intents may therefore interleave freely; ordering is enforced by the
// fetch generation and by session tickets instead.
package planner

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"plancal/internal/cache"
	"plancal/internal/config"
	"plancal/internal/datekey"
	apperrors "plancal/internal/errors"
	"plancal/internal/grid"
	"plancal/internal/icons"
	appLog "plancal/internal/log"
	"plancal/internal/model"
	"plancal/internal/session"
	"plancal/internal/tz"
)

// Remote is the subset of the remote store client the planner needs.
type Remote interface {
	FetchAll(ctx context.Context) (model.Listing, error)
	Create(ctx context.Context, ev model.Event) (int64, error)
	Update(ctx context.Context, ev model.Event) error
	Delete(ctx context.Context, id int64) error
}

// Options configures a Planner.
type Options struct {
	Remote     Remote
	IconStore  icons.Store
	Normalizer *tz.Normalizer
	// IconPersistence is config.IconPersistenceLocal (default) or
	// config.IconPersistenceRemote.
	IconPersistence string
	// IconAdvance is config.IconAdvanceIcon (default) or
	// config.IconAdvanceDay.
	IconAdvance string
	// Now is the clock used to pick the initial month. Defaults to time.Now.
	Now func() time.Time
}

// Planner is safe for concurrent use.
type Planner struct {
	mu sync.Mutex

	remote  Remote
	tz      *tz.Normalizer
	policy  string
	advance string

	year   int
	month0 int

	gen       uint64
	loading   bool
	lastErr   error
	userID    json.RawMessage
	fetchedAt time.Time

	events  *cache.Cache
	icons   *icons.Cache
	session *session.Session
}

// View is what the rendering boundary draws.
type View struct {
	Grid      grid.Grid        `json:"grid"`
	Loading   bool             `json:"loading"`
	Error     string           `json:"error,omitempty"`
	ErrorCode string           `json:"error_code,omitempty"`
	UserID    json.RawMessage  `json:"user_id,omitempty"`
	FetchedAt *time.Time       `json:"fetched_at,omitempty"`
	Session   session.Snapshot `json:"session"`
}

// New builds a planner showing the current month. Nothing is fetched until
// Navigate or Refresh is called.
func New(opts Options) *Planner {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	policy := opts.IconPersistence
	if policy == "" {
		policy = config.IconPersistenceLocal
	}
	advance := opts.IconAdvance
	if advance == "" {
		advance = config.IconAdvanceIcon
	}
	store := opts.IconStore
	if store == nil {
		store = icons.NewMemoryStore()
	}

	today := now().In(opts.Normalizer.Location())
	p := &Planner{
		remote:  opts.Remote,
		tz:      opts.Normalizer,
		policy:  policy,
		advance: advance,
		year:    today.Year(),
		month0:  int(today.Month()) - 1,
		events:  cache.New(),
		icons:   icons.New(store),
		session: session.New(),
	}
	p.hydrateIconsLocked()
	return p
}

// Month returns the visible (year, month0).
func (p *Planner) Month() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.year, p.month0
}

// Loading reports whether the latest fetch is still outstanding.
func (p *Planner) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

// Err returns the error of the latest fetch, if it failed.
func (p *Planner) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Navigate switches to (year, month0) and refetches. month0 may be outside
// [0, 12); it is normalized, so Navigate(y, -1) is December of y-1.
//
// Only the latest navigation's response is applied. A fetch failure keeps
// the previous cache and sets the error flag.
func (p *Planner) Navigate(ctx context.Context, year, month0 int) error {
	year, month0 = normalizeMonth(year, month0)

	p.mu.Lock()
	p.year, p.month0 = year, month0
	gen := p.beginFetchLocked()
	p.mu.Unlock()

	return p.fetch(ctx, gen)
}

// Shift moves delta months from the visible one.
func (p *Planner) Shift(ctx context.Context, delta int) error {
	p.mu.Lock()
	y, m := p.year, p.month0+delta
	p.mu.Unlock()
	return p.Navigate(ctx, y, m)
}

// Refresh refetches the visible month.
func (p *Planner) Refresh(ctx context.Context) error {
	p.mu.Lock()
	gen := p.beginFetchLocked()
	p.mu.Unlock()
	return p.fetch(ctx, gen)
}

// beginFetchLocked bumps the generation, raises the loading guard and
// hydrates icons for the visible month.
func (p *Planner) beginFetchLocked() uint64 {
	p.gen++
	p.loading = true
	p.icons.BeginLoad()
	p.hydrateIconsLocked()
	return p.gen
}

func (p *Planner) hydrateIconsLocked() {
	keys, err := datekey.MonthKeys(p.year, p.month0)
	if err != nil {
		appLog.Error("icons not hydrated", err, "year", p.year, "month", p.month0+1)
		return
	}
	p.icons.Hydrate(keys)
}

func (p *Planner) fetch(ctx context.Context, gen uint64) error {
	start := time.Now()
	listing, err := p.remote.FetchAll(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen {
		appLog.Debug("discarding stale fetch", "generation", gen, "current", p.gen)
		return nil
	}
	p.loading = false
	p.icons.EndLoad()

	if err != nil {
		p.lastErr = err
		appLog.Error("event fetch failed; keeping previous cache", err, "generation", gen)
		return err
	}

	rebuilt, skipped := cache.Rebuild(listing.Events, p.tz.Key)
	for _, e := range skipped {
		appLog.Warn("skipping event with unreadable start_date", "error", e.Error())
	}
	p.events = rebuilt
	p.userID = listing.UserID
	p.lastErr = nil
	p.fetchedAt = time.Now()

	appLog.Info("events fetched",
		"generation", gen,
		"event_count", rebuilt.Len(),
		"skipped", len(skipped),
		"year", p.year,
		"month", p.month0+1,
		"elapsed", time.Since(start),
	)
	return nil
}

// View renders the visible month plus flags and the session.
func (p *Planner) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()

	v := View{
		Grid:    grid.Project(p.year, p.month0, p.events, p.icons),
		Loading: p.loading,
		UserID:  p.userID,
		Session: p.session.Snapshot(),
	}
	if p.lastErr != nil {
		v.Error = p.lastErr.Error()
		v.ErrorCode = string(apperrors.GetCode(p.lastErr))
	}
	if !p.fetchedAt.IsZero() {
		t := p.fetchedAt
		v.FetchedAt = &t
	}
	return v
}

// Grid renders the visible month.
func (p *Planner) Grid() grid.Grid {
	p.mu.Lock()
	defer p.mu.Unlock()
	return grid.Project(p.year, p.month0, p.events, p.icons)
}

// Events returns every cached event in day order, each day sorted by time.
func (p *Planner) Events() []model.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allEventsLocked()
}

func (p *Planner) allEventsLocked() []model.Event {
	keys := p.events.Keys()
	sortKeys(keys)
	out := make([]model.Event, 0, p.events.Len())
	for _, k := range keys {
		out = append(out, p.events.Events(k)...)
	}
	return out
}

// Agenda lists every cached event chronologically.
func (p *Planner) Agenda() []grid.AgendaItem {
	return grid.Agenda(p.Events(), p.tz)
}

// Normalizer returns the display timezone converter.
func (p *Planner) Normalizer() *tz.Normalizer { return p.tz }

func normalizeMonth(year, month0 int) (int, int) {
	t := time.Date(year, time.Month(month0+1), 1, 0, 0, 0, 0, time.UTC)
	return t.Year(), int(t.Month()) - 1
}
