package preferences

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, ownerID, key string) (*models.Preference, error) {
	p := &models.Preference{OwnerID: ownerID, Key: key}
	var value []byte
	var updated int64
	err := r.db.QueryRowContext(ctx,
		`SELECT value, updated_at FROM user_preferences WHERE owner_id = ? AND key = ?`, ownerID, key).
		Scan(&value, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("preference %s: %w", key, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preference[%s]: %w", key, err)
	}
	p.Value = value
	p.UpdatedAt = dbx.FromMicros(updated)
	return p, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, p *models.Preference) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_preferences (owner_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(owner_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, p.OwnerID, p.Key, []byte(p.Value), dbx.Micros(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to set preference[%s]: %w", p.Key, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, ownerID, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_preferences WHERE owner_id = ? AND key = ?`, ownerID, key)
	if err != nil {
		return fmt.Errorf("failed to delete preference[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, ownerID string) (map[string]json.RawMessage, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM user_preferences WHERE owner_id = ?`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list preferences: %w", err)
	}
	defer rows.Close()

	result := make(map[string]json.RawMessage)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan preference row: %w", err)
		}
		result[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate preference rows: %w", err)
	}
	return result, nil
}
