package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func todoPage(t *testing.T, f *fixture, typ models.PageType) *models.Page {
	t.Helper()
	p, err := NewPageService(owner, f.deps).Create(context.Background(), "list", typ, nil)
	require.NoError(t, err)
	return p
}

func TestTodoAdd_RequiresTodoPage(t *testing.T) {
	f := newFixture(t, false)
	svc := NewTodoService(owner, f.deps)
	ctx := context.Background()

	note := todoPage(t, f, models.PageTypeNote)
	before := f.queued(t)

	_, err := svc.Add(ctx, note.ID, "milk")
	require.ErrorIs(t, err, common.ErrInvalidPageType)

	_, err = svc.Add(ctx, "missing", "milk")
	require.ErrorIs(t, err, common.ErrNotFound)

	_, err = svc.Cached(ctx, note.ID)
	require.ErrorIs(t, err, common.ErrInvalidPageType)

	assert.Equal(t, before, f.queued(t))
}

func TestTodoLifecycle_OfflineThenSynced(t *testing.T) {
	f := newFixture(t, false)
	svc := NewTodoService(owner, f.deps)
	ctx := context.Background()

	page := todoPage(t, f, models.PageTypeTodo)
	milk, err := svc.Add(ctx, page.ID, "milk")
	require.NoError(t, err)
	eggs, err := svc.Add(ctx, page.ID, "eggs")
	require.NoError(t, err)

	done, err := svc.ToggleCompleted(ctx, milk.ID)
	require.NoError(t, err)
	assert.True(t, done.Completed)
	assert.True(t, done.UpdatedAt.After(milk.UpdatedAt))

	text := "brown eggs"
	_, err = svc.Update(ctx, eggs.ID, models.TodoPatch{Text: &text})
	require.NoError(t, err)

	items, err := svc.Cached(ctx, page.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, milk.ID, items[0].ID, "oldest first")
	assert.Equal(t, "brown eggs", items[1].Text)

	// page create + 2 adds + toggle + update
	assert.Equal(t, 5, f.queued(t))

	res := f.goOnline(t)
	assert.Equal(t, 5, res.Applied)

	remote, err := f.api.ListTodos(ctx, owner, page.ID)
	require.NoError(t, err)
	require.Len(t, remote, 2)

	require.NoError(t, svc.Delete(ctx, eggs.ID))
	remote, err = f.api.ListTodos(ctx, owner, page.ID)
	require.NoError(t, err)
	require.Len(t, remote, 1)
	assert.True(t, remote[0].Completed)

	err = svc.Delete(ctx, eggs.ID)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestTodoFetchForPage(t *testing.T) {
	f := newFixture(t, true)
	svc := NewTodoService(owner, f.deps)
	ctx := context.Background()

	page := todoPage(t, f, models.PageTypeTodo)
	local, err := svc.Add(ctx, page.ID, "local")
	require.NoError(t, err)

	elsewhere := models.TodoItem{ID: "t-remote", PageID: page.ID, OwnerID: owner, Text: "from phone", CreatedAt: t0, UpdatedAt: t0}
	require.NoError(t, f.api.InsertTodo(ctx, &elsewhere))

	items, err := svc.FetchForPage(ctx, page.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "t-remote", items[0].ID)
	assert.Equal(t, local.ID, items[1].ID)

	f.api.SetAvailable(false)
	items, err = svc.FetchForPage(ctx, page.ID)
	require.ErrorIs(t, err, common.ErrRemoteUnavailable)
	assert.Len(t, items, 2)
}

func TestTodoFetchForPage_DrainDuringRefreshKeepsNewItem(t *testing.T) {
	f := newFixture(t, false)
	svc := NewTodoService(owner, f.withDrainDuringList(t))
	ctx := context.Background()

	page := todoPage(t, f, models.PageTypeTodo)
	f.goOnline(t)
	f.online.Set(false)

	item, err := svc.Add(ctx, page.ID, "milk")
	require.NoError(t, err)

	f.online.Set(true)
	items, err := svc.FetchForPage(ctx, page.ID)
	require.NoError(t, err)
	assert.Zero(t, f.queued(t))
	require.Len(t, items, 1)
	assert.Equal(t, item.ID, items[0].ID)

	stored, err := f.store.Todos().ListByPage(ctx, page.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}
