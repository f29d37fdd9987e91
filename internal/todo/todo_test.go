package todo

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "plancal/internal/errors"
	"plancal/internal/model"
	"plancal/internal/remote"
	"plancal/internal/remote/remotetest"
)

func newList(t *testing.T) (*List, *remotetest.Server, *remote.Client) {
	t.Helper()
	srv := remotetest.NewServer()
	t.Cleanup(srv.Close)
	client := remote.NewClient(context.Background(), remote.Options{BaseURL: srv.BaseURL(), Token: "tok"})
	return New(client), srv, client
}

func contents(todos []model.Todo) []string {
	out := make([]string, 0, len(todos))
	for _, td := range todos {
		out = append(out, td.Content)
	}
	return out
}

func TestRefreshLoadsStoreOrder(t *testing.T) {
	l, srv, _ := newList(t)
	srv.SeedTodos(model.Todo{Content: "milk"}, model.Todo{Content: "bread", Completed: true})

	require.NoError(t, l.Refresh(context.Background()))
	items := l.Items()
	assert.Equal(t, []string{"milk", "bread"}, contents(items))
	assert.True(t, bool(items[1].Completed))
	assert.Equal(t, "Bearer tok", srv.AuthHeaders()[0])
}

func TestRefreshFailureKeepsList(t *testing.T) {
	l, srv, _ := newList(t)
	srv.SeedTodos(model.Todo{Content: "milk"})
	ctx := context.Background()
	require.NoError(t, l.Refresh(ctx))

	srv.Fail(http.MethodGet, http.StatusBadGateway)
	require.Error(t, l.Refresh(ctx))

	v := l.View()
	assert.False(t, v.Loading)
	assert.Equal(t, string(apperrors.ErrCodeNetworkFailure), v.ErrorCode)
	assert.Equal(t, []string{"milk"}, contents(v.Items))
}

func TestAddAppendsAfterStoreAccepts(t *testing.T) {
	l, srv, _ := newList(t)
	ctx := context.Background()
	require.NoError(t, l.Refresh(ctx))

	td, err := l.Add(ctx, "  call mom  ")
	require.NoError(t, err)
	assert.Equal(t, int64(1), td.ID)
	assert.Equal(t, "call mom", td.Content)
	assert.False(t, bool(td.Completed))

	stored, ok := srv.Todo(1)
	require.True(t, ok)
	assert.Equal(t, "call mom", stored.Content)
	assert.Equal(t, []string{"call mom"}, contents(l.Items()))
}

func TestAddRejectsBlankContent(t *testing.T) {
	l, srv, _ := newList(t)
	_, err := l.Add(context.Background(), "   ")
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeInvalidInput))
	assert.Zero(t, srv.Calls(http.MethodPost))
}

func TestAddFailureLeavesNothing(t *testing.T) {
	l, srv, _ := newList(t)
	srv.Fail(http.MethodPost, http.StatusInternalServerError)

	_, err := l.Add(context.Background(), "x")
	require.Error(t, err)
	assert.Empty(t, l.Items())
	assert.NotEmpty(t, l.View().Error)
}

func TestDeleteFailureRestoresPosition(t *testing.T) {
	l, srv, _ := newList(t)
	srv.SeedTodos(model.Todo{Content: "a"}, model.Todo{Content: "b"}, model.Todo{Content: "c"})
	ctx := context.Background()
	require.NoError(t, l.Refresh(ctx))

	srv.Fail(http.MethodDelete, http.StatusInternalServerError)
	require.Error(t, l.Delete(ctx, 2))
	assert.Equal(t, []string{"a", "b", "c"}, contents(l.Items()))

	srv.Recover()
	require.NoError(t, l.Delete(ctx, 2))
	assert.Equal(t, []string{"a", "c"}, contents(l.Items()))
	assert.Equal(t, 2, srv.TodoLen())
}

func TestDeleteUnknownTodo(t *testing.T) {
	l, srv, _ := newList(t)
	err := l.Delete(context.Background(), 5)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeInconsistentState))
	assert.Zero(t, srv.Calls(http.MethodDelete))
}

func TestToggleFlipsAndPersists(t *testing.T) {
	l, srv, _ := newList(t)
	srv.SeedTodos(model.Todo{Content: "a"})
	ctx := context.Background()
	require.NoError(t, l.Refresh(ctx))

	td, err := l.Toggle(ctx, 1)
	require.NoError(t, err)
	assert.True(t, bool(td.Completed))
	stored, _ := srv.Todo(1)
	assert.True(t, bool(stored.Completed))

	td, err = l.Toggle(ctx, 1)
	require.NoError(t, err)
	assert.False(t, bool(td.Completed))
}

func TestToggleFailureReverts(t *testing.T) {
	l, srv, _ := newList(t)
	srv.SeedTodos(model.Todo{Content: "a"})
	ctx := context.Background()
	require.NoError(t, l.Refresh(ctx))
	srv.Fail(http.MethodPatch, http.StatusInternalServerError)

	_, err := l.Toggle(ctx, 1)
	require.Error(t, err)
	assert.False(t, bool(l.Items()[0].Completed))
	stored, _ := srv.Todo(1)
	assert.False(t, bool(stored.Completed))
}

// hookedRemote runs a hook around the real client's mutations, on the
// caller's goroutine.
type hookedRemote struct {
	*remote.Client
	afterCreate  func()
	beforeDelete func()
}

func (r *hookedRemote) CreateTodo(ctx context.Context, content string) (model.Todo, error) {
	td, err := r.Client.CreateTodo(ctx, content)
	if r.afterCreate != nil {
		r.afterCreate()
	}
	return td, err
}

func (r *hookedRemote) DeleteTodo(ctx context.Context, id int64) error {
	if r.beforeDelete != nil {
		r.beforeDelete()
	}
	return r.Client.DeleteTodo(ctx, id)
}

func TestRefreshDuringMutationsKeepsIDsUnique(t *testing.T) {
	_, srv, client := newList(t)
	hr := &hookedRemote{Client: client}
	l := New(hr)
	ctx := context.Background()

	hr.afterCreate = func() { require.NoError(t, l.Refresh(ctx)) }
	_, err := l.Add(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, contents(l.Items()))

	hr.afterCreate = nil
	hr.beforeDelete = func() { require.NoError(t, l.Refresh(ctx)) }
	require.NoError(t, l.Delete(ctx, 1))
	assert.Empty(t, l.Items())
	assert.Zero(t, srv.TodoLen())
}
