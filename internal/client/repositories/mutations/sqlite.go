package mutations

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, m *models.QueuedMutation) error {
	if m.EnqueuedAt.IsZero() {
		m.EnqueuedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO mutation_queue (kind, table_name, entity_id, payload, enqueued_at)
		VALUES (?, ?, ?, ?, ?)
	`, string(m.Kind), string(m.Table), m.EntityID, []byte(m.Payload), dbx.Micros(m.EnqueuedAt))
	if err != nil {
		return fmt.Errorf("failed to enqueue mutation: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read mutation seq: %w", err)
	}
	m.Seq = seq
	return nil
}

func scanMutation(s dbx.Scanner) (models.QueuedMutation, error) {
	var (
		m        models.QueuedMutation
		kind     string
		table    string
		payload  []byte
		enqueued int64
	)
	if err := s.Scan(&m.Seq, &kind, &table, &m.EntityID, &payload, &enqueued); err != nil {
		return models.QueuedMutation{}, fmt.Errorf("failed to scan mutation: %w", err)
	}
	m.Kind = models.MutationKind(kind)
	m.Table = models.Table(table)
	m.Payload = payload
	m.EnqueuedAt = dbx.FromMicros(enqueued)
	return m, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.QueuedMutation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT seq, kind, table_name, entity_id, payload, enqueued_at
		FROM mutation_queue ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list mutations: %w", err)
	}
	return dbx.CollectRows(rows, scanMutation)
}

func (r *SQLiteRepository) Delete(ctx context.Context, seq int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM mutation_queue WHERE seq = ?`, seq); err != nil {
		return fmt.Errorf("failed to delete mutation %d: %w", seq, err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mutation_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count mutations: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) PendingEntities(ctx context.Context, table models.Table) (map[string]models.MutationKind, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT entity_id, kind FROM mutation_queue WHERE table_name = ? ORDER BY seq`, string(table))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending entities: %w", err)
	}
	defer rows.Close()

	out := make(map[string]models.MutationKind)
	for rows.Next() {
		var id, kind string
		if err := rows.Scan(&id, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan pending entity: %w", err)
		}
		out[id] = models.MutationKind(kind)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
