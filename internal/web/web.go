// Package web exposes the planner over HTTP: the month grid, the session
// intents, the todo checklist and a few read-only listings.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"plancal/internal/config"
	"plancal/internal/datekey"
	apperrors "plancal/internal/errors"
	"plancal/internal/ics"
	appLog "plancal/internal/log"
	"plancal/internal/model"
	"plancal/internal/planner"
	"plancal/internal/timefmt"
	"plancal/internal/todo"
)

// maxBody bounds request bodies.
const maxBody = 1 << 20

// Server provides the HTTP rendering boundary for one Planner and its
// todo list.
type Server struct {
	cfg     *config.Config
	planner *planner.Planner
	todos   *todo.List
	mux     *http.ServeMux
	now     func() time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, p *planner.Planner, todos *todo.List) *Server {
	s := &Server{
		cfg:     cfg,
		planner: p,
		todos:   todos,
		mux:     http.NewServeMux(),
		now:     time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// ListenAndServe serves on cfg.Listen until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// 빈 사용자명 또는 비밀번호가 설정된 경우에는 비활성화로 취급한다.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /health 는 항상 무인증으로 노출한다.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="plancal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/grid", s.handleGrid)
	s.mux.HandleFunc("POST /api/navigate", s.handleNavigate)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)

	s.mux.HandleFunc("POST /api/days/{key}/click", s.handleDayClick)
	s.mux.HandleFunc("POST /api/days/{key}/icon", s.handleIconClick)
	s.mux.HandleFunc("GET /api/days/{key}/events", s.handleDayEvents)
	s.mux.HandleFunc("POST /api/days/{key}/events/{id}/open", s.handleOpenEvent)

	s.mux.HandleFunc("GET /api/session", s.handleSession)
	s.mux.HandleFunc("PUT /api/session/draft", s.handleDraft)
	s.mux.HandleFunc("POST /api/session/save", s.handleSave)
	s.mux.HandleFunc("POST /api/session/cancel", s.handleCancel)
	s.mux.HandleFunc("POST /api/session/delete", s.handleDelete)

	s.mux.HandleFunc("GET /api/agenda", s.handleAgenda)
	s.mux.HandleFunc("GET /api/export.ics", s.handleExport)
	s.mux.HandleFunc("GET /api/time-options", s.handleTimeOptions)

	s.mux.HandleFunc("GET /api/todos", s.handleTodos)
	s.mux.HandleFunc("POST /api/todos", s.handleAddTodo)
	s.mux.HandleFunc("POST /api/todos/refresh", s.handleRefreshTodos)
	s.mux.HandleFunc("POST /api/todos/{id}/toggle", s.handleToggleTodo)
	s.mux.HandleFunc("DELETE /api/todos/{id}", s.handleDeleteTodo)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleGrid(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.planner.View())
}

// navigateRequest selects a month either absolutely (year + 1-based month)
// or relative to the visible one (delta).
type navigateRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Delta int `json:"delta"`
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var err error
	switch {
	case req.Year != 0 || req.Month != 0:
		if req.Month < 1 || req.Month > 12 {
			writeAppError(w, apperrors.InvalidInput("month must be 1-12"))
			return
		}
		err = s.planner.Navigate(r.Context(), req.Year, req.Month-1)
	default:
		err = s.planner.Shift(r.Context(), req.Delta)
	}
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.planner.View())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.planner.Refresh(r.Context()); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.planner.View())
}

func (s *Server) handleDayClick(w http.ResponseWriter, r *http.Request) {
	key, ok := pathKey(w, r)
	if !ok {
		return
	}
	snap, err := s.planner.ClickDay(r.Context(), key)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleIconClick(w http.ResponseWriter, r *http.Request) {
	key, ok := pathKey(w, r)
	if !ok {
		return
	}
	res, err := s.planner.ClickIcon(r.Context(), key)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDayEvents(w http.ResponseWriter, r *http.Request) {
	key, ok := pathKey(w, r)
	if !ok {
		return
	}
	events, err := s.planner.DayEvents(key)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date_key": key, "events": events})
}

func (s *Server) handleOpenEvent(w http.ResponseWriter, r *http.Request) {
	key, ok := pathKey(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	snap, err := s.planner.OpenEvent(key, id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.planner.Session())
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	var d model.Draft
	if !decodeBody(w, r, &d) {
		return
	}
	snap, err := s.planner.UpdateDraft(d)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := s.planner.Save(r.Context()); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.planner.View())
}

func (s *Server) handleCancel(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.planner.Cancel())
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.planner.Delete(r.Context()); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.planner.View())
}

func (s *Server) handleAgenda(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": s.planner.Agenda()})
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	body := ics.Export(s.planner.Events(), s.planner.Normalizer(), s.now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="plancal.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// timeOptionsResponse feeds the draft form pickers.
type timeOptionsResponse struct {
	Times  []string      `json:"times"`
	Colors []model.Color `json:"colors"`
	Icons  []string      `json:"icons"`
}

func (s *Server) handleTimeOptions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, timeOptionsResponse{
		Times:  timefmt.Options(),
		Colors: model.Colors,
		Icons:  model.Icons,
	})
}

func (s *Server) handleTodos(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.todos.View())
}

func (s *Server) handleRefreshTodos(w http.ResponseWriter, r *http.Request) {
	if err := s.todos.Refresh(r.Context()); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.todos.View())
}

type addTodoRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleAddTodo(w http.ResponseWriter, r *http.Request) {
	var req addTodoRequest
	if !decodeBody(w, r, &req) {
		return
	}
	td, err := s.todos.Add(r.Context(), req.Content)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, td)
}

func (s *Server) handleToggleTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	td, err := s.todos.Toggle(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, td)
}

func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.todos.Delete(r.Context(), id); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.todos.View())
}

// pathID reads a positive {id}.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeAppError(w, apperrors.InvalidInput("invalid id "+strconv.Quote(r.PathValue("id"))))
		return 0, false
	}
	return id, true
}

// pathKey reads {key} as MM/DD/YYYY (slashes percent-encoded) or as
// YYYY-MM-DD.
func pathKey(w http.ResponseWriter, r *http.Request) (datekey.Key, bool) {
	raw := r.PathValue("key")
	k := datekey.Key(raw)
	if _, _, _, err := datekey.Decode(k); err == nil {
		return k, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return datekey.FromTime(t), true
	}
	writeAppError(w, apperrors.InvalidInput("invalid date key "+strconv.Quote(raw)))
	return "", false
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		writeAppError(w, apperrors.InvalidInput("invalid JSON body: "+err.Error()))
		return false
	}
	return true
}

// statusFor maps error codes to HTTP statuses.
func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeNetworkFailure:
		return http.StatusBadGateway
	case apperrors.ErrCodeInconsistentState, apperrors.ErrCodeInvalidTransition:
		return http.StatusConflict
	case apperrors.ErrCodeInvalidTimeInput:
		return http.StatusUnprocessableEntity
	case apperrors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, code apperrors.ErrorCode, msg string) {
	type errResp struct {
		Error string              `json:"error"`
		Code  apperrors.ErrorCode `json:"code,omitempty"`
	}
	writeJSON(w, status, errResp{Error: msg, Code: code})
}

func writeAppError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		appLog.Error("request failed", err, "code", string(code), "status", status)
	}
	writeError(w, status, code, err.Error())
}
