package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_PageLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	p := &models.Page{ID: "p1", OwnerID: "u1", Title: "a", Type: models.PageTypeNote, CreatedAt: t0, UpdatedAt: t0}
	require.NoError(t, m.InsertPage(ctx, p))
	require.NoError(t, m.InsertPage(ctx, p), "replayed insert must be harmless")

	p.Title = "b"
	p.UpdatedAt = t0.Add(time.Minute)
	require.NoError(t, m.UpdatePage(ctx, p))

	got, err := m.GetPage(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, "b", got.Title)

	_, err = m.GetPage(ctx, "u2", "p1")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.DeletePage(ctx, "u1", "p1"))
	require.NoError(t, m.DeletePage(ctx, "u1", "p1"))
	_, err = m.GetPage(ctx, "u1", "p1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_UpdateMissingIsRejected(t *testing.T) {
	m := NewMemory()

	err := m.UpdatePage(context.Background(), &models.Page{ID: "ghost", OwnerID: "u1"})
	require.ErrorIs(t, err, ErrRejected)
}

func TestMemory_InsertForeignIDRejected(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.InsertTodo(ctx, &models.TodoItem{ID: "t1", OwnerID: "u1", PageID: "p1"}))
	err := m.InsertTodo(ctx, &models.TodoItem{ID: "t1", OwnerID: "u2", PageID: "p1"})
	require.ErrorIs(t, err, ErrRejected)
}

func TestMemory_ListOrdering(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.InsertPage(ctx, &models.Page{ID: "old", OwnerID: "u1", UpdatedAt: t0}))
	require.NoError(t, m.InsertPage(ctx, &models.Page{ID: "new", OwnerID: "u1", UpdatedAt: t0.Add(time.Hour)}))
	pages, err := m.ListPages(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "old"}, []string{pages[0].ID, pages[1].ID})

	require.NoError(t, m.InsertTodo(ctx, &models.TodoItem{ID: "b", OwnerID: "u1", PageID: "p", CreatedAt: t0.Add(time.Second)}))
	require.NoError(t, m.InsertTodo(ctx, &models.TodoItem{ID: "a", OwnerID: "u1", PageID: "p", CreatedAt: t0}))
	todos, err := m.ListTodos(ctx, "u1", "p")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, []string{todos[0].ID, todos[1].ID})

	require.NoError(t, m.InsertSecret(ctx, &models.Secret{ID: "s1", OwnerID: "u1", CreatedAt: t0}))
	require.NoError(t, m.InsertSecret(ctx, &models.Secret{ID: "s2", OwnerID: "u1", CreatedAt: t0.Add(time.Second)}))
	secrets, err := m.ListSecrets(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s2", "s1"}, []string{secrets[0].ID, secrets[1].ID})
}

func TestMemory_Unavailable(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.SetAvailable(false)
	require.ErrorIs(t, m.Ping(ctx), ErrUnavailable)
	_, err := m.ListPages(ctx, "u1")
	require.ErrorIs(t, err, ErrUnavailable)

	m.SetAvailable(true)
	require.NoError(t, m.Ping(ctx))
}

func TestMemory_FailAfter(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	boom := errors.New("boom")

	require.NoError(t, m.InsertSecret(ctx, &models.Secret{ID: "s1", OwnerID: "u1"}))
	require.NoError(t, m.InsertSecret(ctx, &models.Secret{ID: "s2", OwnerID: "u1"}))

	m.FailAfter("UpdateSecretEnvelope", 1, boom)

	require.NoError(t, m.UpdateSecretEnvelope(ctx, "u1", "s1", "x", t0))
	require.ErrorIs(t, m.UpdateSecretEnvelope(ctx, "u1", "s2", "x", t0), boom)
	require.NoError(t, m.UpdateSecretEnvelope(ctx, "u1", "s2", "x", t0))
	assert.Equal(t, 3, m.Calls("UpdateSecretEnvelope"))
}

func TestMemory_ReturnsCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.UpsertPreference(ctx, &models.Preference{OwnerID: "u1", Key: "k", Value: []byte(`[1]`)}))
	got, err := m.GetPreference(ctx, "u1", "k")
	require.NoError(t, err)
	got.Value[1] = '2'

	again, err := m.GetPreference(ctx, "u1", "k")
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(again.Value))
}

func TestMemory_UpsertPinKeepsCreatedAt(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.UpsertPin(ctx, &models.PinRecord{OwnerID: "u1", Hash: "a", CreatedAt: t0, UpdatedAt: t0}))
	later := t0.Add(time.Hour)
	require.NoError(t, m.UpsertPin(ctx, &models.PinRecord{OwnerID: "u1", Hash: "b", CreatedAt: later, UpdatedAt: later}))

	p, err := m.GetPin(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "b", p.Hash)
	assert.Equal(t, t0, p.CreatedAt)
}

func TestOpen_MemoryDSN(t *testing.T) {
	api, err := Open(context.Background(), "memory://demo", false)
	require.NoError(t, err)
	_, ok := api.(*Memory)
	assert.True(t, ok)
	require.NoError(t, api.Close())
}
