package remote

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	apperrors "plancal/internal/errors"
	appLog "plancal/internal/log"
	"plancal/internal/model"
)

type todoListing struct {
	Todos []model.Todo `json:"todos"`
}

type todoCreateRequest struct {
	Content   string `json:"content"`
	Completed bool   `json:"completed"`
}

type todoCreateResponse struct {
	NewTodo model.Todo `json:"newTodo"`
}

type todoPatchRequest struct {
	Completed bool `json:"completed"`
}

// FetchTodos loads the whole checklist.
func (c *Client) FetchTodos(ctx context.Context) ([]model.Todo, error) {
	var out todoListing
	if err := c.do(ctx, "fetch todos", http.MethodGet, c.base+"/todos", nil, &out); err != nil {
		return nil, err
	}
	appLog.Debug("remote todo fetch completed", "todo_count", len(out.Todos), "url", redactURL(c.base))
	if out.Todos == nil {
		return []model.Todo{}, nil
	}
	return out.Todos, nil
}

// CreateTodo stores a new, not yet completed entry and returns the record
// the store echoes back.
func (c *Client) CreateTodo(ctx context.Context, content string) (model.Todo, error) {
	var out todoCreateResponse
	req := todoCreateRequest{Content: content}
	if err := c.do(ctx, "create todo", http.MethodPost, c.base+"/todos", req, &out); err != nil {
		return model.Todo{}, err
	}
	if out.NewTodo.ID == 0 {
		return model.Todo{}, apperrors.NetworkFailure("create todo", errors.New("response carries no newTodo id"))
	}
	return out.NewTodo, nil
}

// DeleteTodo removes the entry with the given id.
func (c *Client) DeleteTodo(ctx context.Context, id int64) error {
	return c.do(ctx, "delete todo", http.MethodDelete, c.todoURL(id), nil, nil)
}

// SetTodoCompleted patches the completion flag only.
func (c *Client) SetTodoCompleted(ctx context.Context, id int64, completed bool) error {
	return c.do(ctx, "update todo", http.MethodPatch, c.todoURL(id), todoPatchRequest{Completed: completed}, nil)
}

func (c *Client) todoURL(id int64) string {
	return c.base + "/todos/" + strconv.FormatInt(id, 10)
}
