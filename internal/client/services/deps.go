package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/client/connectivity"
	"github.com/dmitrijs2005/gophnotes/internal/client/localstore"
	"github.com/dmitrijs2005/gophnotes/internal/client/metrics"
	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/remote"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/mutations"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/pages"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/preferences"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/todos"
	"github.com/dmitrijs2005/gophnotes/internal/client/syncqueue"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
)

// Store is the part of *localstore.Store the services use.
type Store interface {
	Pages() pages.Repository
	Todos() todos.Repository
	Preferences() preferences.Repository
	Mutations() mutations.Repository
	WithTx(ctx context.Context, fn func(ctx context.Context, tx localstore.Tx) error) error
}

// Drainer replays the mutation queue.
type Drainer interface {
	Drain(ctx context.Context) (syncqueue.Result, error)
}

// Deps bundles the collaborators shared by the services.
type Deps struct {
	Store   Store
	API     remote.API
	Sync    Drainer
	Online  connectivity.Signal
	Logger  logging.Logger
	Metrics *metrics.Metrics
	// Now defaults to time.Now.
	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

// commit runs write in one local transaction and enqueues the mutations it
// returns in the same transaction. After a successful commit it calls
// applied (if set) to update the projection, then makes a best-effort drain.
func (d Deps) commit(ctx context.Context, write func(ctx context.Context, tx localstore.Tx) ([]models.QueuedMutation, error), applied func()) error {
	var queued []models.QueuedMutation
	err := d.Store.WithTx(ctx, func(ctx context.Context, tx localstore.Tx) error {
		muts, err := write(ctx, tx)
		if err != nil {
			return err
		}
		for i := range muts {
			if err := tx.Mutations.Enqueue(ctx, &muts[i]); err != nil {
				return err
			}
		}
		queued = muts
		return nil
	})
	if err != nil {
		return err
	}

	if applied != nil {
		applied()
	}
	for _, m := range queued {
		d.Metrics.MutationEnqueued(m.Table)
	}
	if len(queued) > 0 {
		d.syncNow(ctx)
	}
	return nil
}

// syncNow drains the queue if online. Failures stay in the queue and the log.
func (d Deps) syncNow(ctx context.Context) {
	if !d.Online.IsOnline() {
		return
	}
	if _, err := d.Sync.Drain(ctx); err != nil {
		d.Logger.Warn(ctx, "best-effort sync failed", "err", err)
	}
}

// pendingIDs lists the entity ids that have queued mutations in any of the
// given snapshots.
func pendingIDs(snapshots ...map[string]models.MutationKind) []string {
	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, pending := range snapshots {
		for id := range pending {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)
	return ids
}

// projection is a service's in-memory view of one collection.
type projection[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

func newProjection[T any]() *projection[T] {
	return &projection[T]{items: make(map[string]T)}
}

func (p *projection[T]) replace(list []T, key func(T) string, keep func(T) bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for k, v := range p.items {
		if keep == nil || !keep(v) {
			delete(p.items, k)
		}
	}
	for _, v := range list {
		p.items[key(v)] = v
	}
}

func (p *projection[T]) put(key string, v T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items[key] = v
}

func (p *projection[T]) remove(keys ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, k := range keys {
		delete(p.items, k)
	}
}

func (p *projection[T]) get(key string) (T, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.items[key]
	return v, ok
}

// list returns the items accepted by filter, sorted by less.
func (p *projection[T]) list(filter func(T) bool, less func(a, b T) bool) []T {
	p.mu.RLock()
	out := make([]T, 0, len(p.items))
	for _, v := range p.items {
		if filter == nil || filter(v) {
			out = append(out, v)
		}
	}
	p.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
