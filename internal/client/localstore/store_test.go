package localstore

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), MemoryPath, logging.NewDiscard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func notePage(id string) *models.Page {
	now := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	return &models.Page{ID: id, OwnerID: "u1", Title: "Untitled Note", Type: models.PageTypeNote, CreatedAt: now, UpdatedAt: now}
}

func TestOpen_AppliesAllMigrations(t *testing.T) {
	s := openMemory(t)

	v, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "notes.db")

	s, err := Open(ctx, path, logging.NewDiscard())
	require.NoError(t, err)
	require.NoError(t, s.Pages().Put(ctx, notePage("p1")))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path, logging.NewDiscard())
	require.NoError(t, err)
	defer s.Close()

	v, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)

	got, err := s.Pages().Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Untitled Note", got.Title)
}

func TestWithTx_CommitsRecordAndQueueTogether(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		p := notePage("p1")
		if err := tx.Pages.Put(ctx, p); err != nil {
			return err
		}
		m, err := models.NewMutation(models.MutationCreate, models.TablePages, p.ID, p)
		if err != nil {
			return err
		}
		return tx.Mutations.Enqueue(ctx, &m)
	})
	require.NoError(t, err)

	_, err = s.Pages().Get(ctx, "p1")
	require.NoError(t, err)
	n, err := s.Mutations().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		require.NoError(t, tx.Pages.Put(ctx, notePage("p1")))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Pages().Get(ctx, "p1")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestSnapshot_WritesReadableCopy(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	require.NoError(t, s.Pages().Put(ctx, notePage("p1")))

	dst := filepath.Join(t.TempDir(), "snap.db")
	require.NoError(t, s.Snapshot(ctx, dst))

	db, err := sql.Open("sqlite", dst)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM pages`).Scan(&n))
	assert.Equal(t, 1, n)
}
