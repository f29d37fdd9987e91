// Package todo keeps the checklist that sits beside the month grid in sync
// with the remote store.
//
// Adding is pessimistic: an entry appears once the store has assigned its
// id. Deleting and toggling are optimistic and are rolled back if the
// store rejects them. Like the planner, the list never holds its mutex
// across a network call, so every reconciliation is keyed by id.
package todo

import (
	"context"
	"strings"
	"sync"
	"time"

	apperrors "plancal/internal/errors"
	appLog "plancal/internal/log"
	"plancal/internal/model"
)

// Remote is the subset of the remote store client the list needs.
type Remote interface {
	FetchTodos(ctx context.Context) ([]model.Todo, error)
	CreateTodo(ctx context.Context, content string) (model.Todo, error)
	DeleteTodo(ctx context.Context, id int64) error
	SetTodoCompleted(ctx context.Context, id int64, completed bool) error
}

// List is safe for concurrent use.
type List struct {
	mu sync.Mutex

	remote  Remote
	gen     uint64
	loading bool
	lastErr error
	items   []model.Todo
}

// View is what the rendering boundary draws.
type View struct {
	Items     []model.Todo `json:"items"`
	Loading   bool         `json:"loading"`
	Error     string       `json:"error,omitempty"`
	ErrorCode string       `json:"error_code,omitempty"`
}

// New returns an empty list. Nothing is fetched until Refresh.
func New(r Remote) *List {
	return &List{remote: r}
}

// Refresh replaces the list with the store's. Only the latest refresh is
// applied; a failure keeps the previous entries and sets the error flag.
func (l *List) Refresh(ctx context.Context) error {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.loading = true
	l.mu.Unlock()

	start := time.Now()
	todos, err := l.remote.FetchTodos(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		appLog.Debug("discarding stale todo fetch", "generation", gen, "current", l.gen)
		return nil
	}
	l.loading = false
	if err != nil {
		l.lastErr = err
		appLog.Error("todo fetch failed; keeping previous list", err, "generation", gen)
		return err
	}
	l.items = append([]model.Todo(nil), todos...)
	l.lastErr = nil
	appLog.Info("todos fetched", "generation", gen, "todo_count", len(todos), "elapsed", time.Since(start))
	return nil
}

// Items returns a copy of the entries in display order.
func (l *List) Items() []model.Todo {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.itemsLocked()
}

func (l *List) itemsLocked() []model.Todo {
	out := make([]model.Todo, len(l.items))
	copy(out, l.items)
	return out
}

// View returns the entries plus flags.
func (l *List) View() View {
	l.mu.Lock()
	defer l.mu.Unlock()
	v := View{Items: l.itemsLocked(), Loading: l.loading}
	if l.lastErr != nil {
		v.Error = l.lastErr.Error()
		v.ErrorCode = string(apperrors.GetCode(l.lastErr))
	}
	return v
}

// Add creates an entry. Blank content is rejected without a request.
func (l *List) Add(ctx context.Context, content string) (model.Todo, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return model.Todo{}, apperrors.InvalidInput("todo content is empty")
	}

	created, err := l.remote.CreateTodo(ctx, content)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.lastErr = err
		return model.Todo{}, err
	}
	// A refresh that landed while the create was in flight may hold it.
	if i := l.indexLocked(created.ID); i >= 0 {
		l.items[i] = created
	} else {
		l.items = append(l.items, created)
	}
	appLog.Info("todo created", "todo_id", created.ID)
	return created, nil
}

// Delete removes the entry at once and restores it at its former position
// if the store rejects the request.
func (l *List) Delete(ctx context.Context, id int64) error {
	l.mu.Lock()
	i := l.indexLocked(id)
	if i < 0 {
		l.mu.Unlock()
		return apperrors.MissingTodo(id)
	}
	removed := l.items[i]
	l.items = append(l.items[:i:i], l.items[i+1:]...)
	l.mu.Unlock()

	err := l.remote.DeleteTodo(ctx, id)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		if l.indexLocked(id) < 0 {
			l.insertLocked(i, removed)
		}
		l.lastErr = err
		appLog.Error("todo delete failed; restored", err, "todo_id", id)
		return err
	}
	if j := l.indexLocked(id); j >= 0 {
		l.items = append(l.items[:j:j], l.items[j+1:]...)
	}
	appLog.Info("todo deleted", "todo_id", id)
	return nil
}

// Toggle flips the completion flag at once and flips it back if the store
// rejects the change. Toggles are not coalesced.
func (l *List) Toggle(ctx context.Context, id int64) (model.Todo, error) {
	l.mu.Lock()
	i := l.indexLocked(id)
	if i < 0 {
		l.mu.Unlock()
		return model.Todo{}, apperrors.MissingTodo(id)
	}
	want := !l.items[i].Completed
	l.items[i].Completed = want
	updated := l.items[i]
	l.mu.Unlock()

	err := l.remote.SetTodoCompleted(ctx, id, bool(want))
	if err == nil {
		appLog.Info("todo toggled", "todo_id", id, "completed", bool(want))
		return updated, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if j := l.indexLocked(id); j >= 0 && l.items[j].Completed == want {
		l.items[j].Completed = !want
	}
	l.lastErr = err
	appLog.Error("todo toggle failed; reverted", err, "todo_id", id)
	return model.Todo{}, err
}

func (l *List) indexLocked(id int64) int {
	for i, td := range l.items {
		if td.ID == id {
			return i
		}
	}
	return -1
}

func (l *List) insertLocked(i int, td model.Todo) {
	if i > len(l.items) {
		i = len(l.items)
	}
	l.items = append(l.items, model.Todo{})
	copy(l.items[i+1:], l.items[i:])
	l.items[i] = td
}
