package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophnotes/internal/client/localstore"
	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/pages"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/google/uuid"
)

// TodoService manages the items of todo pages.
type TodoService struct {
	Deps
	owner string
	cache *projection[models.TodoItem]

	loadMu sync.Mutex
	loaded map[string]bool
}

func NewTodoService(owner string, d Deps) *TodoService {
	return &TodoService{Deps: d, owner: owner, cache: newProjection[models.TodoItem](), loaded: make(map[string]bool)}
}

func todoKey(t models.TodoItem) string { return t.ID }

func olderFirst(a, b models.TodoItem) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func onPage(pageID string) func(models.TodoItem) bool {
	return func(t models.TodoItem) bool { return t.PageID == pageID }
}

// requireTodoPage checks that pageID is a locally known todo page.
func requireTodoPage(ctx context.Context, repo pages.Repository, pageID string) error {
	p, err := repo.Get(ctx, pageID)
	if err != nil {
		return err
	}
	if p.Type != models.PageTypeTodo {
		return fmt.Errorf("page %s is a %s page: %w", pageID, p.Type, common.ErrInvalidPageType)
	}
	return nil
}

func (s *TodoService) load(ctx context.Context, pageID string) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if s.loaded[pageID] {
		return nil
	}
	list, err := s.Store.Todos().ListByPage(ctx, pageID)
	if err != nil {
		return fmt.Errorf("load todo items: %w", err)
	}
	s.cache.replace(list, todoKey, func(t models.TodoItem) bool { return t.PageID != pageID })
	s.loaded[pageID] = true
	return nil
}

// Cached returns a page's items from the projection, oldest first.
func (s *TodoService) Cached(ctx context.Context, pageID string) ([]models.TodoItem, error) {
	if err := requireTodoPage(ctx, s.Store.Pages(), pageID); err != nil {
		return nil, err
	}
	if err := s.load(ctx, pageID); err != nil {
		return nil, err
	}
	return s.cache.list(onPage(pageID), olderFirst), nil
}

// FetchForPage refreshes a page's items from the backend. On failure the
// cached items are returned with the error.
func (s *TodoService) FetchForPage(ctx context.Context, pageID string) ([]models.TodoItem, error) {
	cached, err := s.Cached(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if !s.Online.IsOnline() {
		return cached, fmt.Errorf("refresh todo items: %w", common.ErrRemoteUnavailable)
	}

	before, err := s.Store.Mutations().PendingEntities(ctx, models.TableTodoItems)
	if err != nil {
		return cached, fmt.Errorf("read pending todo items: %w", err)
	}
	fresh, err := s.API.ListTodos(ctx, s.owner, pageID)
	if err != nil {
		s.Logger.Warn(ctx, "todo refresh failed", "page_id", pageID, "err", err)
		return cached, fmt.Errorf("refresh todo items: %w", err)
	}

	var local []models.TodoItem
	err = s.Store.WithTx(ctx, func(ctx context.Context, tx localstore.Tx) error {
		pending, err := tx.Mutations.PendingEntities(ctx, models.TableTodoItems)
		if err != nil {
			return err
		}
		if err := tx.Todos.ReplaceForPage(ctx, pageID, fresh, pendingIDs(before, pending)); err != nil {
			return err
		}
		local, err = tx.Todos.ListByPage(ctx, pageID)
		return err
	})
	if err != nil {
		return cached, fmt.Errorf("store refreshed todo items: %w", err)
	}

	s.cache.replace(local, todoKey, func(t models.TodoItem) bool { return t.PageID != pageID })
	return s.cache.list(onPage(pageID), olderFirst), nil
}

// Add appends an item to a todo page.
func (s *TodoService) Add(ctx context.Context, pageID, text string) (*models.TodoItem, error) {
	now := s.now()
	item := models.TodoItem{
		ID:        uuid.NewString(),
		PageID:    pageID,
		OwnerID:   s.owner,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.commit(ctx, func(ctx context.Context, tx localstore.Tx) ([]models.QueuedMutation, error) {
		if err := requireTodoPage(ctx, tx.Pages, pageID); err != nil {
			return nil, err
		}
		if err := tx.Todos.Put(ctx, &item); err != nil {
			return nil, err
		}
		m, err := models.NewMutation(models.MutationCreate, models.TableTodoItems, item.ID, item)
		return []models.QueuedMutation{m}, err
	}, func() { s.cache.put(item.ID, item) })
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *TodoService) Update(ctx context.Context, id string, patch models.TodoPatch) (*models.TodoItem, error) {
	return s.modify(ctx, id, func(t *models.TodoItem) { patch.Apply(t, s.now()) })
}

func (s *TodoService) ToggleCompleted(ctx context.Context, id string) (*models.TodoItem, error) {
	return s.modify(ctx, id, func(t *models.TodoItem) {
		done := !t.Completed
		models.TodoPatch{Completed: &done}.Apply(t, s.now())
	})
}

func (s *TodoService) modify(ctx context.Context, id string, change func(t *models.TodoItem)) (*models.TodoItem, error) {
	var out models.TodoItem
	err := s.commit(ctx, func(ctx context.Context, tx localstore.Tx) ([]models.QueuedMutation, error) {
		cur, err := tx.Todos.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := requireTodoPage(ctx, tx.Pages, cur.PageID); err != nil {
			return nil, err
		}
		change(cur)
		if err := tx.Todos.Put(ctx, cur); err != nil {
			return nil, err
		}
		out = *cur
		m, err := models.NewMutation(models.MutationUpdate, models.TableTodoItems, id, cur)
		return []models.QueuedMutation{m}, err
	}, func() { s.cache.put(id, out) })
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *TodoService) Delete(ctx context.Context, id string) error {
	return s.commit(ctx, func(ctx context.Context, tx localstore.Tx) ([]models.QueuedMutation, error) {
		if _, err := tx.Todos.Get(ctx, id); err != nil {
			return nil, err
		}
		if err := tx.Todos.Delete(ctx, id); err != nil {
			return nil, err
		}
		m, err := models.NewMutation(models.MutationDelete, models.TableTodoItems, id,
			models.DeleteKey{ID: id, OwnerID: s.owner})
		return []models.QueuedMutation{m}, err
	}, func() { s.cache.remove(id) })
}
