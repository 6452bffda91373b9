package pages

import (
	"context"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
)

// Repository describes local CRUD and index lookups for pages.
type Repository interface {
	// Get returns the page or common.ErrNotFound.
	Get(ctx context.Context, id string) (*models.Page, error)

	// ListByOwner returns the owner's pages, most recently updated first.
	ListByOwner(ctx context.Context, ownerID string) ([]models.Page, error)

	// ListByParent returns the direct children of a page.
	ListByParent(ctx context.Context, parentID string) ([]models.Page, error)

	CountChildren(ctx context.Context, id string) (int, error)

	// Put inserts the page or replaces the stored copy.
	Put(ctx context.Context, p *models.Page) error

	// Delete removes the page. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error

	// ReplaceForOwner makes the owner's pages equal to list, except that
	// pages whose ids are in preserve are left as they are.
	ReplaceForOwner(ctx context.Context, ownerID string, list []models.Page, preserve []string) error
}
