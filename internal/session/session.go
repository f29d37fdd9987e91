// Package session implements the single edit session that sits between user
// intents and the synchronizer.
//
// 모달은 한 번에 하나만 열린다. The planner owns exactly one Session, so
// there is never a second concurrent draft.
package session

import (
	"github.com/google/uuid"

	"plancal/internal/datekey"
	apperrors "plancal/internal/errors"
	"plancal/internal/model"
)

// Mode is the session state.
type Mode int

const (
	Idle Mode = iota
	Creating
	Editing
	Saving
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Creating:
		return "creating"
	case Editing:
		return "editing"
	case Saving:
		return "saving"
	default:
		return "unknown"
	}
}

// Action is the remote operation a ticket was issued for.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Ticket identifies one in-flight save or delete. A response is applied only
// while Matches(ticket) holds.
type Ticket struct {
	ID      uuid.UUID
	Action  Action
	Key     datekey.Key
	EventID int64
	Draft   model.Draft
	// Original is the event being edited or deleted (zero for create).
	Original model.Event
}

// Snapshot is a read-only copy of the session for rendering.
type Snapshot struct {
	ID      string      `json:"id,omitempty"`
	Mode    string      `json:"mode"`
	Prior   string      `json:"prior,omitempty"`
	Key     datekey.Key `json:"date_key,omitempty"`
	EventID int64       `json:"event_id,omitempty"`
	Draft   model.Draft `json:"draft"`
	Error   string      `json:"error,omitempty"`
}

// Session is the edit session state machine. Not safe for concurrent use.
type Session struct {
	mode  Mode
	prior Mode // mode to return to when a save fails

	id       uuid.UUID
	key      datekey.Key
	eventID  int64
	original model.Event
	draft    model.Draft
	inflight Action
	lastErr  string
}

// New returns an idle session.
func New() *Session { return &Session{} }

// Mode returns the current state.
func (s *Session) Mode() Mode { return s.mode }

// Key returns the target day, empty while idle.
func (s *Session) Key() datekey.Key { return s.key }

// Draft returns the current draft.
func (s *Session) Draft() model.Draft { return s.draft }

// OpenCreate starts a new draft for an empty day.
func (s *Session) OpenCreate(k datekey.Key) error {
	if s.mode != Idle {
		return apperrors.InvalidTransition(s.mode.String(), "open create")
	}
	s.open(Creating, k, model.Event{}, model.NewDraft())
	return nil
}

// OpenEdit starts editing an existing event, prefilling the draft.
func (s *Session) OpenEdit(k datekey.Key, ev model.Event) error {
	if s.mode != Idle {
		return apperrors.InvalidTransition(s.mode.String(), "open edit")
	}
	if !ev.HasID() {
		return apperrors.InvalidInput("cannot edit an event without an id")
	}
	s.open(Editing, k, ev, model.DraftFrom(ev))
	return nil
}

func (s *Session) open(m Mode, k datekey.Key, ev model.Event, d model.Draft) {
	s.mode = m
	s.prior = Idle
	s.id = uuid.New()
	s.key = k
	s.eventID = ev.ID
	s.original = ev
	s.draft = d
	s.inflight = ""
	s.lastErr = ""
}

// SetDraft replaces the draft while creating or editing.
func (s *Session) SetDraft(d model.Draft) error {
	if s.mode != Creating && s.mode != Editing {
		return apperrors.InvalidTransition(s.mode.String(), "edit draft")
	}
	if d.Color == "" {
		d.Color = model.DefaultColor
	}
	if !d.Color.Valid() {
		return apperrors.InvalidInput("unknown color " + string(d.Color))
	}
	s.draft = d
	return nil
}

// BeginSave moves Creating or Editing to Saving and issues a ticket.
func (s *Session) BeginSave() (Ticket, error) {
	action := ActionCreate
	switch s.mode {
	case Creating:
	case Editing:
		action = ActionUpdate
	default:
		return Ticket{}, apperrors.InvalidTransition(s.mode.String(), "save")
	}
	return s.begin(action), nil
}

// BeginDelete moves Editing to Saving and issues a delete ticket.
func (s *Session) BeginDelete() (Ticket, error) {
	if s.mode != Editing {
		return Ticket{}, apperrors.InvalidTransition(s.mode.String(), "delete")
	}
	return s.begin(ActionDelete), nil
}

func (s *Session) begin(a Action) Ticket {
	s.prior = s.mode
	s.mode = Saving
	s.inflight = a
	s.lastErr = ""
	return Ticket{
		ID:       s.id,
		Action:   a,
		Key:      s.key,
		EventID:  s.eventID,
		Draft:    s.draft,
		Original: s.original,
	}
}

// Matches reports whether t was issued by the current, still saving session.
func (s *Session) Matches(t Ticket) bool {
	return s.mode == Saving && s.id == t.ID && s.inflight == t.Action
}

// Finish completes the ticket. Success closes the session; failure returns
// to the prior mode with the draft kept so the user can retry. It reports
// false, changing nothing, when the ticket is stale.
func (s *Session) Finish(t Ticket, err error) bool {
	if !s.Matches(t) {
		return false
	}
	if err == nil {
		s.reset()
		return true
	}
	s.mode = s.prior
	s.prior = Idle
	s.inflight = ""
	s.lastErr = err.Error()
	return true
}

// Cancel discards the draft from any state. A request still in flight is not
// aborted; its ticket simply stops matching.
func (s *Session) Cancel() {
	s.reset()
}

func (s *Session) reset() {
	*s = Session{}
}

// Snapshot copies the session for rendering.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Mode:    s.mode.String(),
		Key:     s.key,
		EventID: s.eventID,
		Draft:   s.draft,
		Error:   s.lastErr,
	}
	if s.mode != Idle {
		snap.ID = s.id.String()
	}
	if s.mode == Saving {
		snap.Prior = s.prior.String()
	}
	return snap
}
