package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/client/connectivity"
	"github.com/dmitrijs2005/gophnotes/internal/client/localstore"
	"github.com/dmitrijs2005/gophnotes/internal/client/metrics"
	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/remote"
	"github.com/dmitrijs2005/gophnotes/internal/client/syncqueue"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
	"github.com/stretchr/testify/require"
)

const owner = "user-1"

var t0 = time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store  *localstore.Store
	api    *remote.Memory
	online *connectivity.Static
	proc   *syncqueue.Processor
	deps   Deps
	ticks  atomic.Int64
}

// newFixture wires the services against an in-memory store and backend.
// The clock advances one second per reading.
func newFixture(t *testing.T, online bool) *fixture {
	t.Helper()
	store, err := localstore.Open(context.Background(), localstore.MemoryPath, logging.NewDiscard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{store: store, api: remote.NewMemory(), online: connectivity.NewStatic(online)}
	m := metrics.NewDiscard()
	f.proc = syncqueue.New(store.Mutations(), f.api, logging.NewDiscard(), m)
	f.deps = Deps{
		Store:   store,
		API:     f.api,
		Sync:    f.proc,
		Online:  f.online,
		Logger:  logging.NewDiscard(),
		Metrics: m,
		Now:     func() time.Time { return t0.Add(time.Duration(f.ticks.Add(1)) * time.Second) },
	}
	return f
}

func (f *fixture) queued(t *testing.T) int {
	t.Helper()
	n, err := f.store.Mutations().Count(context.Background())
	require.NoError(t, err)
	return n
}

// goOnline flips the signal and drains, like the connectivity monitor does.
func (f *fixture) goOnline(t *testing.T) syncqueue.Result {
	t.Helper()
	f.online.Set(true)
	res, err := f.proc.Drain(context.Background())
	require.NoError(t, err)
	return res
}

// racingAPI runs afterList once a list has been read from the backend and
// before it is returned, standing in for a drain on another goroutine.
type racingAPI struct {
	remote.API
	afterList func()
}

func (r *racingAPI) ListPages(ctx context.Context, ownerID string) ([]models.Page, error) {
	list, err := r.API.ListPages(ctx, ownerID)
	r.afterList()
	return list, err
}

func (r *racingAPI) ListTodos(ctx context.Context, ownerID, pageID string) ([]models.TodoItem, error) {
	list, err := r.API.ListTodos(ctx, ownerID, pageID)
	r.afterList()
	return list, err
}

// withDrainDuringList returns deps whose list calls drain the queue after
// taking their snapshot.
func (f *fixture) withDrainDuringList(t *testing.T) Deps {
	t.Helper()
	d := f.deps
	d.API = &racingAPI{API: f.api, afterList: func() {
		_, err := f.proc.Drain(context.Background())
		require.NoError(t, err)
	}}
	return d
}
