package pages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/dbx"
)

const pageColumns = `id, owner_id, parent_id, title, type, content, pinned, created_at, updated_at`

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func scanPage(s dbx.Scanner) (models.Page, error) {
	var (
		p        models.Page
		parent   sql.NullString
		content  []byte
		created  int64
		updated  int64
		pageType string
	)
	if err := s.Scan(&p.ID, &p.OwnerID, &parent, &p.Title, &pageType, &content, &p.Pinned, &created, &updated); err != nil {
		return models.Page{}, fmt.Errorf("failed to scan page: %w", err)
	}
	p.ParentID = dbx.StringPtr(parent)
	p.Type = models.PageType(pageType)
	p.Content = models.Document(content)
	p.CreatedAt = dbx.FromMicros(created)
	p.UpdatedAt = dbx.FromMicros(updated)
	return p, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.Page, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages WHERE id = ?`, id)
	p, err := scanPage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("page %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *SQLiteRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Page, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE owner_id = ? ORDER BY updated_at DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select pages: %w", err)
	}
	return dbx.CollectRows(rows, scanPage)
}

func (r *SQLiteRepository) ListByParent(ctx context.Context, parentID string) ([]models.Page, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE parent_id = ? ORDER BY created_at, id`, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to select child pages: %w", err)
	}
	return dbx.CollectRows(rows, scanPage)
}

func (r *SQLiteRepository) CountChildren(ctx context.Context, id string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages WHERE parent_id = ?`, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count child pages: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Put(ctx context.Context, p *models.Page) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pages (`+pageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			parent_id = excluded.parent_id,
			title = excluded.title,
			type = excluded.type,
			content = excluded.content,
			pinned = excluded.pinned,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`, p.ID, p.OwnerID, dbx.NullString(p.ParentID), p.Title, string(p.Type), []byte(models.Document(p.Content)), p.Pinned,
		dbx.Micros(p.CreatedAt), dbx.Micros(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert page: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pages WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete page: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ReplaceForOwner(ctx context.Context, ownerID string, list []models.Page, preserve []string) error {
	query := `DELETE FROM pages WHERE owner_id = ?`
	args := []any{ownerID}
	if len(preserve) > 0 {
		marks, ids := dbx.Placeholders(preserve)
		query += ` AND id NOT IN (` + marks + `)`
		args = append(args, ids...)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to clear owner pages: %w", err)
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
