package services

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dmitrijs2005/gophnotes/internal/client/localstore"
	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/common"
)

// FetchPinnedOrder returns the manual order of pinned pages. The stored order
// is reconciled with the pages that are pinned right now, and written back
// (and queued) when that changed it. Read, reconcile and write happen in one
// transaction.
func (s *PageService) FetchPinnedOrder(ctx context.Context) (models.PinnedOrder, error) {
	s.refreshPinnedOrder(ctx)

	var order models.PinnedOrder
	err := s.commit(ctx, func(ctx context.Context, tx localstore.Tx) ([]models.QueuedMutation, error) {
		stored, err := s.readOrder(ctx, tx)
		if err != nil {
			return nil, err
		}
		pinned, err := s.pinnedIDs(ctx, tx)
		if err != nil {
			return nil, err
		}

		normalized, changed := stored.Normalize(pinned)
		order = normalized
		if !changed {
			return nil, nil
		}
		return s.saveOrder(ctx, tx, normalized)
	}, nil)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ReorderPinnedPages stores a new manual order. Ids that are not pinned are
// dropped and pinned pages missing from newOrder are appended.
func (s *PageService) ReorderPinnedPages(ctx context.Context, newOrder []string) (models.PinnedOrder, error) {
	var order models.PinnedOrder
	err := s.commit(ctx, func(ctx context.Context, tx localstore.Tx) ([]models.QueuedMutation, error) {
		pinned, err := s.pinnedIDs(ctx, tx)
		if err != nil {
			return nil, err
		}
		order, _ = models.PinnedOrder(newOrder).Normalize(pinned)

		stored, err := s.readOrder(ctx, tx)
		if err != nil {
			return nil, err
		}
		if stored.Equal(order) {
			return nil, nil
		}
		return s.saveOrder(ctx, tx, order)
	}, nil)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// refreshPinnedOrder copies the backend's order into the local store unless
// a local change is still queued. Failures only get logged.
func (s *PageService) refreshPinnedOrder(ctx context.Context) {
	if !s.Online.IsOnline() {
		return
	}
	pref, err := s.API.GetPreference(ctx, s.owner, common.PinnedOrderKey)
	if errors.Is(err, common.ErrNotFound) {
		return
	}
	if err != nil {
		s.Logger.Warn(ctx, "pinned order refresh failed", "err", err)
		return
	}

	err = s.Store.WithTx(ctx, func(ctx context.Context, tx localstore.Tx) error {
		pending, err := tx.Mutations.PendingEntities(ctx, models.TableUserPreferences)
		if err != nil {
			return err
		}
		if _, ok := pending[common.PinnedOrderKey]; ok {
			return nil
		}
		return tx.Preferences.Set(ctx, pref)
	})
	if err != nil {
		s.Logger.Warn(ctx, "store refreshed pinned order", "err", err)
	}
}

func (s *PageService) readOrder(ctx context.Context, tx localstore.Tx) (models.PinnedOrder, error) {
	pref, err := tx.Preferences.Get(ctx, s.owner, common.PinnedOrderKey)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var order models.PinnedOrder
	if err := json.Unmarshal(pref.Value, &order); err != nil {
		s.Logger.Warn(ctx, "discarding unreadable pinned order", "err", err)
		return nil, nil
	}
	return order, nil
}

// pinnedIDs lists pinned pages in the local store's owner order.
func (s *PageService) pinnedIDs(ctx context.Context, tx localstore.Tx) ([]string, error) {
	list, err := tx.Pages.ListByOwner(ctx, s.owner)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0)
	for _, p := range list {
		if p.Pinned {
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

func (s *PageService) saveOrder(ctx context.Context, tx localstore.Tx, order models.PinnedOrder) ([]models.QueuedMutation, error) {
	value, err := json.Marshal(order)
	if err != nil {
		return nil, err
	}
	pref := models.Preference{OwnerID: s.owner, Key: common.PinnedOrderKey, Value: value, UpdatedAt: s.now()}
	if err := tx.Preferences.Set(ctx, &pref); err != nil {
		return nil, err
	}
	m, err := models.NewMutation(models.MutationUpsert, models.TableUserPreferences, pref.Key, pref)
	return []models.QueuedMutation{m}, err
}
