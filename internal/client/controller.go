package client

import (
	"context"
	"slices"
	"sync"

	"todolist/internal/models"
)

// TodoAPI is the subset of Client the controller needs.
type TodoAPI interface {
	ListTodos(ctx context.Context) ([]models.Todo, error)
	CreateTodo(ctx context.Context, title string) (*models.Todo, error)
	DeleteTodo(ctx context.Context, id int64) error
}

// Controller keeps the client-side copy of the list in step with the server.
// State changes only after the server confirms an operation; on failure the
// error is returned and the local list is left as it was.
type Controller struct {
	api   TodoAPI
	mu    sync.Mutex
	todos []models.Todo
}

func NewController(api TodoAPI) *Controller {
	return &Controller{api: api, todos: []models.Todo{}}
}

// Load replaces local state with the server's list.
func (c *Controller) Load(ctx context.Context) error {
	todos, err := c.api.ListTodos(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.todos = slices.Clone(todos)
	c.mu.Unlock()
	return nil
}

// Add creates a todo and appends the server's copy, with its assigned id.
func (c *Controller) Add(ctx context.Context, title string) (*models.Todo, error) {
	todo, err := c.api.CreateTodo(ctx, title)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.todos = append(c.todos, *todo)
	c.mu.Unlock()
	return todo, nil
}

// Delete removes id on the server, then locally.
func (c *Controller) Delete(ctx context.Context, id int64) error {
	if err := c.api.DeleteTodo(ctx, id); err != nil {
		return err
	}

	c.mu.Lock()
	c.todos = slices.DeleteFunc(c.todos, func(t models.Todo) bool { return t.ID == id })
	c.mu.Unlock()
	return nil
}

// Todos returns a copy of the current list.
func (c *Controller) Todos() []models.Todo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.todos)
}
