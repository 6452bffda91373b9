package todos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/dbx"
)

const todoColumns = `id, page_id, owner_id, text, notes, completed, created_at, updated_at`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func scanTodo(s dbx.Scanner) (models.TodoItem, error) {
	var (
		t       models.TodoItem
		notes   []byte
		created int64
		updated int64
	)
	if err := s.Scan(&t.ID, &t.PageID, &t.OwnerID, &t.Text, &notes, &t.Completed, &created, &updated); err != nil {
		return models.TodoItem{}, fmt.Errorf("failed to scan todo item: %w", err)
	}
	t.Notes = models.Document(notes)
	t.CreatedAt = dbx.FromMicros(created)
	t.UpdatedAt = dbx.FromMicros(updated)
	return t, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.TodoItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+todoColumns+` FROM todo_items WHERE id = ?`, id)
	t, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("todo item %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *SQLiteRepository) ListByPage(ctx context.Context, pageID string) ([]models.TodoItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+todoColumns+` FROM todo_items WHERE page_id = ? ORDER BY created_at, id`, pageID)
	if err != nil {
		return nil, fmt.Errorf("failed to select todo items: %w", err)
	}
	return dbx.CollectRows(rows, scanTodo)
}

func (r *SQLiteRepository) Put(ctx context.Context, t *models.TodoItem) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO todo_items (`+todoColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			page_id = excluded.page_id,
			owner_id = excluded.owner_id,
			text = excluded.text,
			notes = excluded.notes,
			completed = excluded.completed,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`, t.ID, t.PageID, t.OwnerID, t.Text, []byte(models.Document(t.Notes)), t.Completed,
		dbx.Micros(t.CreatedAt), dbx.Micros(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert todo item: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM todo_items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete todo item: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByPage(ctx context.Context, pageID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM todo_items WHERE page_id = ?`, pageID); err != nil {
		return fmt.Errorf("failed to delete todo items of page: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ReplaceForPage(ctx context.Context, pageID string, list []models.TodoItem, preserve []string) error {
	query := `DELETE FROM todo_items WHERE page_id = ?`
	args := []any{pageID}
	if len(preserve) > 0 {
		marks, ids := dbx.Placeholders(preserve)
		query += ` AND id NOT IN (` + marks + `)`
		args = append(args, ids...)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to clear page todo items: %w", err)
	}

	keep := make(map[string]bool, len(preserve))
	for _, id := range preserve {
		keep[id] = true
	}
	for i := range list {
		if keep[list[i].ID] {
			continue
		}
		if err := r.Put(ctx, &list[i]); err != nil {
			return err
		}
	}
	return nil
}
