package remote

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
)

type PageStore interface {
	// ListPages returns the owner's pages, most recently updated first.
	ListPages(ctx context.Context, ownerID string) ([]models.Page, error)
	GetPage(ctx context.Context, ownerID, id string) (*models.Page, error)
	// InsertPage creates the page, or overwrites it if the same owner already
	// stored that id, so replaying an insert is harmless.
	InsertPage(ctx context.Context, p *models.Page) error
	UpdatePage(ctx context.Context, p *models.Page) error
	// DeletePage succeeds when the row is already gone.
	DeletePage(ctx context.Context, ownerID, id string) error
}

type TodoStore interface {
	// ListTodos returns a page's items, oldest first.
	ListTodos(ctx context.Context, ownerID, pageID string) ([]models.TodoItem, error)
	InsertTodo(ctx context.Context, t *models.TodoItem) error
	UpdateTodo(ctx context.Context, t *models.TodoItem) error
	DeleteTodo(ctx context.Context, ownerID, id string) error
}

type PreferenceStore interface {
	GetPreference(ctx context.Context, ownerID, key string) (*models.Preference, error)
	// UpsertPreference writes the value keyed by (owner, key).
	UpsertPreference(ctx context.Context, p *models.Preference) error
}

type SecretStore interface {
	// ListSecrets returns the owner's secrets, newest first.
	ListSecrets(ctx context.Context, ownerID string) ([]models.Secret, error)
	GetSecret(ctx context.Context, ownerID, id string) (*models.Secret, error)
	InsertSecret(ctx context.Context, s *models.Secret) error
	UpdateSecretEnvelope(ctx context.Context, ownerID, id, envelope string, updatedAt time.Time) error
	DeleteSecret(ctx context.Context, ownerID, id string) error
}

type PinStore interface {
	GetPin(ctx context.Context, ownerID string) (*models.PinRecord, error)
	// UpsertPin writes the single pin record of the owner.
	UpsertPin(ctx context.Context, p *models.PinRecord) error
}

// API is the full remote surface used by the client.
type API interface {
	PageStore
	TodoStore
	PreferenceStore
	SecretStore
	PinStore

	// Ping reports ErrUnavailable when the backend cannot be reached.
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ API = (*Postgres)(nil)
	_ API = (*Memory)(nil)
)
