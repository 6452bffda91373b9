package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophnotes/internal/client/localstore"
	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/google/uuid"
)

// PageService reads and writes the user's pages.
type PageService struct {
	Deps
	owner string
	cache *projection[models.Page]

	loadMu sync.Mutex
	loaded bool
}

func NewPageService(owner string, d Deps) *PageService {
	return &PageService{Deps: d, owner: owner, cache: newProjection[models.Page]()}
}

func pageKey(p models.Page) string { return p.ID }

func newerFirst(a, b models.Page) bool {
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.ID < b.ID
}

// load fills the projection from the local store once.
func (s *PageService) load(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if s.loaded {
		return nil
	}
	list, err := s.Store.Pages().ListByOwner(ctx, s.owner)
	if err != nil {
		return fmt.Errorf("load pages: %w", err)
	}
	s.cache.replace(list, pageKey, nil)
	s.loaded = true
	return nil
}

// Cached returns the projection without touching the backend, most recently
// updated first.
func (s *PageService) Cached(ctx context.Context) ([]models.Page, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s.cache.list(nil, newerFirst), nil
}

// FetchAll refreshes the pages from the backend. Pages with queued local
// changes keep their local state until the queue is drained. If the refresh
// fails the cached pages are returned together with the error.
func (s *PageService) FetchAll(ctx context.Context) ([]models.Page, error) {
	cached, err := s.Cached(ctx)
	if err != nil {
		return nil, err
	}
	if !s.Online.IsOnline() {
		return cached, fmt.Errorf("refresh pages: %w", common.ErrRemoteUnavailable)
	}

	// A drain running concurrently may apply and dequeue a mutation after
	// the remote list was read; entities pending at either point are kept.
	before, err := s.Store.Mutations().PendingEntities(ctx, models.TablePages)
	if err != nil {
		return cached, fmt.Errorf("read pending pages: %w", err)
	}
	fresh, err := s.API.ListPages(ctx, s.owner)
	if err != nil {
		s.Logger.Warn(ctx, "page refresh failed", "err", err)
		return cached, fmt.Errorf("refresh pages: %w", err)
	}

	var local []models.Page
	err = s.Store.WithTx(ctx, func(ctx context.Context, tx localstore.Tx) error {
		pending, err := tx.Mutations.PendingEntities(ctx, models.TablePages)
		if err != nil {
			return err
		}
		if err := tx.Pages.ReplaceForOwner(ctx, s.owner, fresh, pendingIDs(before, pending)); err != nil {
			return err
		}
		local, err = tx.Pages.ListByOwner(ctx, s.owner)
		return err
	})
	if err != nil {
		return cached, fmt.Errorf("store refreshed pages: %w", err)
	}

	s.cache.replace(local, pageKey, nil)
	return s.cache.list(nil, newerFirst), nil
}

// FetchByID is the single-record form of FetchAll.
func (s *PageService) FetchByID(ctx context.Context, id string) (*models.Page, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	local, localErr := s.Store.Pages().Get(ctx, id)
	if localErr != nil && !errors.Is(localErr, common.ErrNotFound) {
		return nil, localErr
	}

	var remoteErr error
	var fresh *models.Page
	if s.Online.IsOnline() {
		fresh, remoteErr = s.API.GetPage(ctx, s.owner, id)
	} else {
		remoteErr = common.ErrRemoteUnavailable
	}

	if remoteErr != nil && !errors.Is(remoteErr, common.ErrNotFound) {
		err := fmt.Errorf("refresh page %s: %w", id, remoteErr)
		if local == nil {
			return nil, errors.Join(localErr, err)
		}
		return local, err
	}

	var out *models.Page
	var children int
	err := s.Store.WithTx(ctx, func(ctx context.Context, tx localstore.Tx) error {
		pending, err := tx.Mutations.PendingEntities(ctx, models.TablePages)
		if err != nil {
			return err
		}
		if _, ok := pending[id]; ok {
			out = local
			return nil
		}
		if fresh == nil {
			if local == nil {
				return nil
			}
			// a page with local children stays until they are gone
			if children, err = tx.Pages.CountChildren(ctx, id); err != nil {
				return err
			}
			if children > 0 {
				out = local
				return nil
			}
			if err := tx.Todos.DeleteByPage(ctx, id); err != nil {
				return err
			}
			return tx.Pages.Delete(ctx, id)
		}
		out = fresh
		return tx.Pages.Put(ctx, fresh)
	})
	if err != nil {
		return local, fmt.Errorf("store refreshed page: %w", err)
	}
	if children > 0 {
		s.Logger.Warn(ctx, "page missing remotely but has local children, keeping it",
			"entity_id", id, "children", children)
	}

	if out == nil {
		s.cache.remove(id)
		return nil, fmt.Errorf("page %s: %w", id, common.ErrNotFound)
	}
	s.cache.put(id, *out)
	return out, nil
}

// Create adds a page. A parent, when given, must exist locally.
func (s *PageService) Create(ctx context.Context, title string, typ models.PageType, parentID *string) (*models.Page, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: %q", common.ErrInvalidPageType, typ)
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}

	now := s.now()
	p := models.Page{
		ID:        uuid.NewString(),
		OwnerID:   s.owner,
		ParentID:  parentID,
		Title:     title,
		Type:      typ,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.commit(ctx, func(ctx context.Context, tx localstore.Tx) ([]models.QueuedMutation, error) {
		if parentID != nil {
			if _, err := tx.Pages.Get(ctx, *parentID); err != nil {
				return nil, fmt.Errorf("parent: %w", err)
			}
		}
		if err := tx.Pages.Put(ctx, &p); err != nil {
			return nil, err
		}
		m, err := models.NewMutation(models.MutationCreate, models.TablePages, p.ID, p)
		return []models.QueuedMutation{m}, err
	}, func() { s.cache.put(p.ID, p) })
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Update merges patch onto a locally known page.
func (s *PageService) Update(ctx context.Context, id string, patch models.PagePatch) (*models.Page, error) {
	return s.modify(ctx, id, func(p *models.Page) { patch.Apply(p, s.now()) })
}

// TogglePin flips the pinned flag.
func (s *PageService) TogglePin(ctx context.Context, id string) (*models.Page, error) {
	return s.modify(ctx, id, func(p *models.Page) {
		pinned := !p.Pinned
		models.PagePatch{Pinned: &pinned}.Apply(p, s.now())
	})
}

func (s *PageService) modify(ctx context.Context, id string, change func(p *models.Page)) (*models.Page, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}

	var out models.Page
	err := s.commit(ctx, func(ctx context.Context, tx localstore.Tx) ([]models.QueuedMutation, error) {
		cur, err := tx.Pages.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		change(cur)
		if err := tx.Pages.Put(ctx, cur); err != nil {
			return nil, err
		}
		out = *cur
		m, err := models.NewMutation(models.MutationUpdate, models.TablePages, id, cur)
		return []models.QueuedMutation{m}, err
	}, func() { s.cache.put(id, out) })
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a page and its todo items. The item deletes are queued ahead
// of the page delete. Pages that still have child pages cannot be deleted.
func (s *PageService) Delete(ctx context.Context, id string) error {
	if err := s.load(ctx); err != nil {
		return err
	}

	return s.commit(ctx, func(ctx context.Context, tx localstore.Tx) ([]models.QueuedMutation, error) {
		if _, err := tx.Pages.Get(ctx, id); err != nil {
			return nil, err
		}
		n, err := tx.Pages.CountChildren(ctx, id)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, fmt.Errorf("page %s: %w", id, common.ErrHasChildren)
		}
		items, err := tx.Todos.ListByPage(ctx, id)
		if err != nil {
			return nil, err
		}
		muts := make([]models.QueuedMutation, 0, len(items)+1)
		for _, it := range items {
			m, err := models.NewMutation(models.MutationDelete, models.TableTodoItems, it.ID,
				models.DeleteKey{ID: it.ID, OwnerID: s.owner})
			if err != nil {
				return nil, err
			}
			muts = append(muts, m)
		}
		if err := tx.Todos.DeleteByPage(ctx, id); err != nil {
			return nil, err
		}
		if err := tx.Pages.Delete(ctx, id); err != nil {
			return nil, err
		}
		m, err := models.NewMutation(models.MutationDelete, models.TablePages, id,
			models.DeleteKey{ID: id, OwnerID: s.owner})
		return append(muts, m), err
	}, func() { s.cache.remove(id) })
}
