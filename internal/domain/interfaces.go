package domain

import (
	"context"

	"todolist/internal/models"
)

// TodoStore is the persistence contract the API servers depend on.
type TodoStore interface {
	ListTodos(ctx context.Context) ([]models.Todo, error)
	CreateTodo(ctx context.Context, title string) (*models.Todo, error)
	DeleteTodo(ctx context.Context, id int64) error
	PingContext(ctx context.Context) error
}

// RateLimiter decides whether one more request from key may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
