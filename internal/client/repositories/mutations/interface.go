package mutations

import (
	"context"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
)

type Repository interface {
	// Enqueue appends m and stores the assigned sequence number in m.Seq.
	Enqueue(ctx context.Context, m *models.QueuedMutation) error

	// List returns the whole queue in ascending sequence order.
	List(ctx context.Context) ([]models.QueuedMutation, error)

	Delete(ctx context.Context, seq int64) error
	Count(ctx context.Context) (int, error)

	// PendingEntities maps every queued entity id of table to the kind of
	// its most recent queued mutation.
	PendingEntities(ctx context.Context, table models.Table) (map[string]models.MutationKind, error)
}
