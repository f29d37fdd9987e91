// Package remotetest provides an in-memory fake of the remote event store.
// It serves GET/POST {base}/events, PUT/DELETE {base}/events/{id},
// GET/POST {base}/todos and PATCH/DELETE {base}/todos/{id} with the same
// response shapes as the real store.
package remotetest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"

	"plancal/internal/model"
	"plancal/internal/tz"
)

// Server is a fake remote store backed by httptest.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	events   map[int64]model.Event
	nextID   int64
	todos    map[int64]model.Todo
	nextTodo int64
	failures map[string]int // method -> status to answer with
	auth     []string
	calls    map[string]int
	before   func(r *http.Request)
}

// NewServer starts a fake store. Call Close when done.
func NewServer() *Server {
	s := &Server{
		events:   make(map[int64]model.Event),
		nextID:   1,
		todos:    make(map[int64]model.Todo),
		nextTodo: 1,
		failures: make(map[string]int),
		calls:    make(map[string]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/events", s.handleCollection)
	mux.HandleFunc("/api/events/", s.handleItem)
	mux.HandleFunc("/api/todos", s.handleTodos)
	mux.HandleFunc("/api/todos/", s.handleTodoItem)
	s.Server = httptest.NewServer(mux)
	return s
}

// BaseURL is the API root to hand to remote.NewClient.
func (s *Server) BaseURL() string { return s.URL + "/api" }

// Seed stores events directly, assigning ids to those without one.
// Returns the stored copies.
func (s *Server) Seed(events ...model.Event) []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if ev.ID == 0 {
			ev.ID = s.nextID
		}
		if ev.ID >= s.nextID {
			s.nextID = ev.ID + 1
		}
		s.events[ev.ID] = ev
		out = append(out, ev)
	}
	return out
}

// SeedTodos stores checklist entries directly, assigning ids to those
// without one.
func (s *Server) SeedTodos(todos ...model.Todo) []model.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Todo, 0, len(todos))
	for _, td := range todos {
		if td.ID == 0 {
			td.ID = s.nextTodo
		}
		if td.ID >= s.nextTodo {
			s.nextTodo = td.ID + 1
		}
		s.todos[td.ID] = td
		out = append(out, td)
	}
	return out
}

// Todo returns the stored checklist entry.
func (s *Server) Todo(id int64) (model.Todo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	td, ok := s.todos[id]
	return td, ok
}

// TodoLen is the number of stored checklist entries.
func (s *Server) TodoLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.todos)
}

// Fail makes every request with the given method answer status until
// Recover is called.
func (s *Server) Fail(method string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = status
}

// Recover clears all injected failures.
func (s *Server) Recover() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]int)
}

// Event returns the stored record.
func (s *Server) Event(id int64) (model.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	return ev, ok
}

// SetBefore installs a hook run before each request is handled. Tests use
// it to hold requests back.
func (s *Server) SetBefore(fn func(r *http.Request)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.before = fn
}

// Remove deletes a stored record behind the client's back.
func (s *Server) Remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.events, id)
}

// Len is the number of stored events.
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Calls counts handled requests per method.
func (s *Server) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// AuthHeaders lists the Authorization headers seen, in order.
func (s *Server) AuthHeaders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.auth...)
}

// begin records the call and reports an injected failure status, if any.
func (s *Server) begin(w http.ResponseWriter, r *http.Request) bool {
	s.mu.Lock()
	before := s.before
	s.mu.Unlock()
	if before != nil {
		before(r)
	}

	s.mu.Lock()
	s.calls[r.Method]++
	s.auth = append(s.auth, r.Header.Get("Authorization"))
	status, fail := s.failures[r.Method]
	s.mu.Unlock()
	if fail {
		http.Error(w, "injected failure", status)
		return false
	}
	return true
}

func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, r) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.listEvents(w)
	case http.MethodPost:
		s.insertEvent(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, r) {
		return
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/api/events/"), 10, 64)
	if err != nil {
		http.Error(w, "invalid event id", http.StatusBadRequest)
		return
	}
	switch r.Method {
	case http.MethodPut:
		s.updateEvent(w, r, id)
	case http.MethodDelete:
		s.deleteEvent(w, id)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) listEvents(w http.ResponseWriter) {
	s.mu.Lock()
	events := make([]model.Event, 0, len(s.events))
	for _, ev := range s.events {
		events = append(events, toWire(ev))
	}
	s.mu.Unlock()

	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"userId": "tester",
	})
}

func (s *Server) insertEvent(w http.ResponseWriter, r *http.Request) {
	var ev model.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, fmt.Sprintf("invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	ev.ID = s.nextID
	s.nextID++
	s.events[ev.ID] = ev
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"saveEventId": map[string]any{"insertId": ev.ID},
	})
}

func (s *Server) updateEvent(w http.ResponseWriter, r *http.Request, id int64) {
	var ev model.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, fmt.Sprintf("invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		http.Error(w, "event not found", http.StatusNotFound)
		return
	}
	ev.ID = id
	s.events[id] = ev
	writeJSON(w, http.StatusOK, map[string]any{"message": "updated"})
}

func (s *Server) deleteEvent(w http.ResponseWriter, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		http.Error(w, "event not found", http.StatusNotFound)
		return
	}
	delete(s.events, id)
	writeJSON(w, http.StatusOK, map[string]any{"message": "deleted"})
}

func (s *Server) handleTodos(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, r) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.mu.Lock()
		todos := make([]model.Todo, 0, len(s.todos))
		for _, td := range s.todos {
			todos = append(todos, td)
		}
		s.mu.Unlock()
		sort.Slice(todos, func(i, j int) bool { return todos[i].ID < todos[j].ID })
		writeJSON(w, http.StatusOK, map[string]any{"todos": todos})
	case http.MethodPost:
		var td model.Todo
		if err := json.NewDecoder(r.Body).Decode(&td); err != nil {
			http.Error(w, fmt.Sprintf("invalid JSON: %v", err), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		td.ID = s.nextTodo
		s.nextTodo++
		s.todos[td.ID] = td
		s.mu.Unlock()
		writeJSON(w, http.StatusCreated, map[string]any{"newTodo": td})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleTodoItem(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, r) {
		return
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/api/todos/"), 10, 64)
	if err != nil {
		http.Error(w, "invalid todo id", http.StatusBadRequest)
		return
	}
	switch r.Method {
	case http.MethodPatch:
		var body struct {
			Completed *bool `json:"completed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Completed == nil {
			http.Error(w, "completed is required", http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		td, ok := s.todos[id]
		if !ok {
			http.Error(w, "todo not found", http.StatusNotFound)
			return
		}
		td.Completed = model.Flag(*body.Completed)
		s.todos[id] = td
		writeJSON(w, http.StatusOK, map[string]any{"message": "updated"})
	case http.MethodDelete:
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.todos[id]; !ok {
			http.Error(w, "todo not found", http.StatusNotFound)
			return
		}
		delete(s.todos, id)
		writeJSON(w, http.StatusOK, map[string]any{"message": "deleted"})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// toWire renders dates the way the store's driver serializes DATETIME
// columns: ISO 8601 UTC with milliseconds.
func toWire(ev model.Event) model.Event {
	ev.StartDate = isoUTC(ev.StartDate)
	ev.EndDate = isoUTC(ev.EndDate)
	return ev
}

func isoUTC(s string) string {
	t, err := tz.Parse(s)
	if err != nil {
		return s
	}
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
