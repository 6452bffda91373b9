package todos

import (
	"context"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
)

// Repository describes local CRUD for todo items.
type Repository interface {
	// Get returns the item or common.ErrNotFound.
	Get(ctx context.Context, id string) (*models.TodoItem, error)

	// ListByPage returns a page's items, oldest first.
	ListByPage(ctx context.Context, pageID string) ([]models.TodoItem, error)

	Put(ctx context.Context, item *models.TodoItem) error
	Delete(ctx context.Context, id string) error
	DeleteByPage(ctx context.Context, pageID string) error

	// ReplaceForPage makes the page's items equal to list, leaving items
	// whose ids are in preserve untouched.
	ReplaceForPage(ctx context.Context, pageID string, list []models.TodoItem, preserve []string) error
}
