package database

import (
	"context"
	"database/sql"
	"fmt"

	"todolist/internal/models"
)

// ListTodos returns every todo in ascending id order. The slice is empty, not
// nil, when the table has no rows.
func (db *DB) ListTodos(ctx context.Context) ([]models.Todo, error) {
	rows, err := db.db.QueryContext(ctx, db.dialect.listSQL)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	todos := make([]models.Todo, 0)
	for rows.Next() {
		var t models.Todo
		if err := rows.Scan(&t.ID, &t.Title); err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return todos, nil
}

// CreateTodo inserts a row and returns it as stored. An empty title is bound
// as NULL, which the NOT NULL column rejects.
func (db *DB) CreateTodo(ctx context.Context, title string) (*models.Todo, error) {
	arg := sql.NullString{String: title, Valid: title != ""}

	var t models.Todo
	if err := db.db.QueryRowContext(ctx, db.dialect.insertSQL, arg).Scan(&t.ID, &t.Title); err != nil {
		return nil, fmt.Errorf("create todo: %w", err)
	}

	db.logger.Debug().Int64("id", t.ID).Msg("todo created")
	return &t, nil
}

// DeleteTodo removes the row with the given id. Deleting an id that does not
// exist is not an error.
func (db *DB) DeleteTodo(ctx context.Context, id int64) error {
	res, err := db.db.ExecContext(ctx, db.dialect.deleteSQL, id)
	if err != nil {
		return fmt.Errorf("delete todo %d: %w", id, err)
	}

	if n, err := res.RowsAffected(); err == nil {
		db.logger.Debug().Int64("id", id).Int64("rows", n).Msg("todo deleted")
	}
	return nil
}

// SeedTodos inserts titles in order inside one transaction and returns the
// stored rows.
func (db *DB) SeedTodos(ctx context.Context, titles []string) ([]models.Todo, error) {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	out := make([]models.Todo, 0, len(titles))
	for _, title := range titles {
		var t models.Todo
		arg := sql.NullString{String: title, Valid: title != ""}
		if err := tx.QueryRowContext(ctx, db.dialect.insertSQL, arg).Scan(&t.ID, &t.Title); err != nil {
			return nil, fmt.Errorf("seed todo %q: %w", title, err)
		}
		out = append(out, t)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit seed: %w", err)
	}
	db.logger.Info().Int("count", len(out)).Msg("todos seeded")
	return out, nil
}
