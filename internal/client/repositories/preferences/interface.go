package preferences

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
)

type Repository interface {
	// Get returns the preference or common.ErrNotFound.
	Get(ctx context.Context, ownerID, key string) (*models.Preference, error)
	Set(ctx context.Context, p *models.Preference) error
	Delete(ctx context.Context, ownerID, key string) error
	List(ctx context.Context, ownerID string) (map[string]json.RawMessage, error)
}
