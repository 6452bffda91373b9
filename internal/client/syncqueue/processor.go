package syncqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophnotes/internal/client/metrics"
	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/remote"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/mutations"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
	"golang.org/x/sync/singleflight"
)

// ErrMalformed marks a queue entry that cannot be turned into a remote call.
var ErrMalformed = errors.New("malformed mutation")

// Result summarises one drain.
type Result struct {
	Applied   int
	Abandoned int
	Remaining int
}

type Processor struct {
	queue   mutations.Repository
	api     remote.API
	logger  logging.Logger
	metrics *metrics.Metrics
	sf      singleflight.Group
}

func New(queue mutations.Repository, api remote.API, logger logging.Logger, m *metrics.Metrics) *Processor {
	return &Processor{queue: queue, api: api, logger: logger, metrics: m}
}

// Drain replays queued mutations until the queue is empty or a transient
// failure stops it. Callers arriving while a drain is running wait for it and
// receive its result.
func (p *Processor) Drain(ctx context.Context) (Result, error) {
	v, err, _ := p.sf.Do("drain", func() (any, error) {
		return p.drain(ctx)
	})
	res, _ := v.(Result)
	return res, err
}

// Pending reports the number of queued mutations.
func (p *Processor) Pending(ctx context.Context) (int, error) {
	return p.queue.Count(ctx)
}

func (p *Processor) drain(ctx context.Context) (Result, error) {
	var res Result

	for {
		batch, err := p.queue.List(ctx)
		if err != nil {
			return res, fmt.Errorf("read queue: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for _, m := range batch {
			if err := p.replay(ctx, m, &res); err != nil {
				p.metrics.DrainFailures.Inc()
				p.finish(ctx, &res)
				return res, err
			}
		}
	}

	p.finish(ctx, &res)
	return res, nil
}

func (p *Processor) replay(ctx context.Context, m models.QueuedMutation, res *Result) error {
	log := p.logger.With("seq", m.Seq, "table", m.Table, "kind", m.Kind, "entity_id", m.EntityID)

	err := p.apply(ctx, m)
	switch {
	case err == nil:
		if err := p.queue.Delete(ctx, m.Seq); err != nil {
			return err
		}
		res.Applied++
		p.metrics.Applied.Inc()
		log.Debug(ctx, "mutation applied")
		return nil

	case errors.Is(err, remote.ErrRejected) || errors.Is(err, ErrMalformed):
		if err := p.queue.Delete(ctx, m.Seq); err != nil {
			return err
		}
		res.Abandoned++
		p.metrics.Abandoned.Inc()
		log.Error(ctx, "mutation abandoned", "err", err)
		return nil

	default:
		log.Warn(ctx, "drain stopped", "err", err)
		return fmt.Errorf("drain stopped at seq %d: %w", m.Seq, err)
	}
}

func (p *Processor) finish(ctx context.Context, res *Result) {
	n, err := p.queue.Count(ctx)
	if err != nil {
		p.logger.Warn(ctx, "count queue", "err", err)
		return
	}
	res.Remaining = n
	p.metrics.QueueDepth.Set(float64(n))
}

func decode[T any](m models.QueuedMutation) (*T, error) {
	var v T
	if err := json.Unmarshal(m.Payload, &v); err != nil {
		return nil, fmt.Errorf("%w: seq %d: %w", ErrMalformed, m.Seq, err)
	}
	return &v, nil
}

func (p *Processor) apply(ctx context.Context, m models.QueuedMutation) error {
	switch m.Table {
	case models.TablePages:
		return p.applyPage(ctx, m)
	case models.TableTodoItems:
		return p.applyTodo(ctx, m)
	case models.TableUserPreferences:
		if m.Kind != models.MutationUpsert {
			break
		}
		pref, err := decode[models.Preference](m)
		if err != nil {
			return err
		}
		return p.api.UpsertPreference(ctx, pref)
	}
	return fmt.Errorf("%w: %s on %s", ErrMalformed, m.Kind, m.Table)
}

func (p *Processor) applyPage(ctx context.Context, m models.QueuedMutation) error {
	if m.Kind == models.MutationDelete {
		key, err := decode[models.DeleteKey](m)
		if err != nil {
			return err
		}
		return p.api.DeletePage(ctx, key.OwnerID, key.ID)
	}

	page, err := decode[models.Page](m)
	if err != nil {
		return err
	}
	switch m.Kind {
	case models.MutationCreate:
		return p.api.InsertPage(ctx, page)
	case models.MutationUpdate:
		return p.api.UpdatePage(ctx, page)
	}
	return fmt.Errorf("%w: %s on %s", ErrMalformed, m.Kind, m.Table)
}

func (p *Processor) applyTodo(ctx context.Context, m models.QueuedMutation) error {
	if m.Kind == models.MutationDelete {
		key, err := decode[models.DeleteKey](m)
		if err != nil {
			return err
		}
		return p.api.DeleteTodo(ctx, key.OwnerID, key.ID)
	}

	item, err := decode[models.TodoItem](m)
	if err != nil {
		return err
	}
	switch m.Kind {
	case models.MutationCreate:
		return p.api.InsertTodo(ctx, item)
	case models.MutationUpdate:
		return p.api.UpdateTodo(ctx, item)
	}
	return fmt.Errorf("%w: %s on %s", ErrMalformed, m.Kind, m.Table)
}
