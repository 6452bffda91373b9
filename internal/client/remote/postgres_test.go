package remote

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func newPostgresWithMock(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp), sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() {
		mock.ExpectClose()
		_ = db.Close()
	})
	return NewPostgres(db), mock
}

var pageCols = []string{"id", "owner_id", "parent_id", "title", "type", "content", "pinned", "created_at", "updated_at"}

func TestPostgres_ListPages(t *testing.T) {
	r, mock := newPostgresWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM pages WHERE owner_id = \$1 ORDER BY updated_at DESC`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(pageCols).
			AddRow("p2", "u1", "p1", "child", "todo", nil, false, t0, t0.Add(time.Hour)).
			AddRow("p1", "u1", nil, "root", "note", []byte(`{"a":1}`), true, t0, t0))

	list, err := r.ListPages(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "p2", list[0].ID)
	require.NotNil(t, list[0].ParentID)
	assert.Equal(t, "p1", *list[0].ParentID)
	assert.Equal(t, models.PageTypeTodo, list[0].Type)
	assert.Nil(t, list[0].Content)

	assert.Nil(t, list[1].ParentID)
	assert.JSONEq(t, `{"a":1}`, string(list[1].Content))
	assert.True(t, list[1].Pinned)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetPage_NotFound(t *testing.T) {
	r, mock := newPostgresWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM pages WHERE owner_id = \$1 AND id = \$2`).
		WithArgs("u1", "nope").
		WillReturnError(sql.ErrNoRows)

	_, err := r.GetPage(context.Background(), "u1", "nope")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestPostgres_InsertPage_Upserts(t *testing.T) {
	r, mock := newPostgresWithMock(t)
	parent := "root"
	p := &models.Page{ID: "p1", OwnerID: "u1", ParentID: &parent, Title: "t", Type: models.PageTypeNote, CreatedAt: t0, UpdatedAt: t0}

	mock.ExpectExec(`INSERT INTO pages .* ON CONFLICT \(id\)\s+DO UPDATE SET .* WHERE pages\.owner_id = EXCLUDED\.owner_id`).
		WithArgs("p1", "u1", "root", "t", "note", nil, false, t0, t0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, r.InsertPage(context.Background(), p))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_InsertPage_ForeignOwnerRejected(t *testing.T) {
	r, mock := newPostgresWithMock(t)

	mock.ExpectExec(`INSERT INTO pages`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := r.InsertPage(context.Background(), &models.Page{ID: "p1", OwnerID: "u1", Type: models.PageTypeNote})
	require.ErrorIs(t, err, ErrRejected)
	assert.False(t, IsTransient(err))
}

func TestPostgres_UpdatePage_NoRowRejected(t *testing.T) {
	r, mock := newPostgresWithMock(t)

	mock.ExpectExec(`UPDATE pages SET .* WHERE owner_id = \$1 AND id = \$2`).
		WithArgs("u1", "p1", nil, "t", "note", []byte(`{}`), true, t0).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := r.UpdatePage(context.Background(), &models.Page{
		ID: "p1", OwnerID: "u1", Title: "t", Type: models.PageTypeNote, Content: []byte(`{}`), Pinned: true, UpdatedAt: t0,
	})
	require.ErrorIs(t, err, ErrRejected)
}

func TestPostgres_DeletePage_ConnectionErrorIsTransient(t *testing.T) {
	r, mock := newPostgresWithMock(t)

	mock.ExpectExec(`DELETE FROM pages WHERE owner_id = \$1 AND id = \$2`).
		WithArgs("u1", "p1").
		WillReturnError(errors.New("dial tcp: connection refused"))

	err := r.DeletePage(context.Background(), "u1", "p1")
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, err, common.ErrRemoteUnavailable)
	assert.True(t, IsTransient(err))
}

func TestPostgres_ListTodos(t *testing.T) {
	r, mock := newPostgresWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM todo_items WHERE owner_id = \$1 AND page_id = \$2 ORDER BY created_at ASC`).
		WithArgs("u1", "p1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "page_id", "owner_id", "text", "notes", "completed", "created_at", "updated_at"}).
			AddRow("t1", "p1", "u1", "milk", nil, true, t0, t0))

	list, err := r.ListTodos(context.Background(), "u1", "p1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "milk", list[0].Text)
	assert.True(t, list[0].Completed)
}

func TestPostgres_NullDocumentsAreEmpty(t *testing.T) {
	r, mock := newPostgresWithMock(t)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO todo_items`).
		WithArgs("t1", "p1", "u1", "milk", nil, false, t0, t0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .* FROM todo_items`).
		WithArgs("u1", "p1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "page_id", "owner_id", "text", "notes", "completed", "created_at", "updated_at"}).
			AddRow("t1", "p1", "u1", "milk", []byte(`null`), false, t0, t0))

	require.NoError(t, r.InsertTodo(ctx, &models.TodoItem{
		ID: "t1", PageID: "p1", OwnerID: "u1", Text: "milk", Notes: []byte(`null`), CreatedAt: t0, UpdatedAt: t0,
	}))
	list, err := r.ListTodos(ctx, "u1", "p1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Notes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpsertPreference(t *testing.T) {
	r, mock := newPostgresWithMock(t)

	mock.ExpectExec(`INSERT INTO user_preferences .* ON CONFLICT \(owner_id, key\)`).
		WithArgs("u1", "pinned_order", []byte(`["a"]`), t0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := r.UpsertPreference(context.Background(), &models.Preference{
		OwnerID: "u1", Key: "pinned_order", Value: []byte(`["a"]`), UpdatedAt: t0,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateSecretEnvelope(t *testing.T) {
	r, mock := newPostgresWithMock(t)

	mock.ExpectExec(`UPDATE secrets SET envelope = \$3, updated_at = \$4 WHERE owner_id = \$1 AND id = \$2`).
		WithArgs("u1", "s1", "env", t0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, r.UpdateSecretEnvelope(context.Background(), "u1", "s1", "env", t0))
}

func TestPostgres_InsertSecret_ConstraintRejected(t *testing.T) {
	r, mock := newPostgresWithMock(t)

	mock.ExpectExec(`INSERT INTO secrets`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})

	err := r.InsertSecret(context.Background(), &models.Secret{ID: "s1", OwnerID: "u1"})
	require.ErrorIs(t, err, ErrRejected)
}

func TestPostgres_GetPin(t *testing.T) {
	r, mock := newPostgresWithMock(t)

	mock.ExpectQuery(`SELECT hash, created_at, updated_at FROM pin_records WHERE owner_id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"hash", "created_at", "updated_at"}).AddRow("abc", t0, t0))

	p, err := r.GetPin(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "abc", p.Hash)
	assert.Equal(t, "u1", p.OwnerID)
}

func TestPostgres_Ping(t *testing.T) {
	r, mock := newPostgresWithMock(t)

	mock.ExpectPing()
	require.NoError(t, r.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("down"))
	require.ErrorIs(t, r.Ping(context.Background()), ErrUnavailable)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", sql.ErrNoRows, ErrNotFound},
		{"deadline", context.DeadlineExceeded, ErrUnavailable},
		{"unique violation", &pgconn.PgError{Code: "23505"}, ErrRejected},
		{"rls denied", &pgconn.PgError{Code: "42501"}, ErrRejected},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, ErrUnavailable},
		{"unknown", errors.New("broken pipe"), ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, mapError("op", tt.err), tt.want)
		})
	}
	assert.NoError(t, mapError("op", nil))
}
