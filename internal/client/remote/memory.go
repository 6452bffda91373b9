package remote

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
)

type prefKey struct {
	owner string
	key   string
}

// Memory is an in-process API. It can be switched offline and primed to fail
// specific operations, which makes it the backend of choice for tests.
type Memory struct {
	mu        sync.Mutex
	available bool

	pages   map[string]models.Page
	todos   map[string]models.TodoItem
	prefs   map[prefKey]models.Preference
	secrets map[string]models.Secret
	pins    map[string]models.PinRecord

	calls  map[string]int
	failAt map[string]map[int]error
}

func NewMemory() *Memory {
	return &Memory{
		available: true,
		pages:     make(map[string]models.Page),
		todos:     make(map[string]models.TodoItem),
		prefs:     make(map[prefKey]models.Preference),
		secrets:   make(map[string]models.Secret),
		pins:      make(map[string]models.PinRecord),
		calls:     make(map[string]int),
		failAt:    make(map[string]map[int]error),
	}
}

// SetAvailable switches the backend on or off. While off every call fails
// with ErrUnavailable.
func (m *Memory) SetAvailable(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = v
}

// FailAfter lets the next n calls of op succeed and fails the one after
// with err. Op names match the API method names, e.g. "UpdateSecretEnvelope".
func (m *Memory) FailAfter(op string, n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAt[op] == nil {
		m.failAt[op] = make(map[int]error)
	}
	m.failAt[op][m.calls[op]+n+1] = err
}

// Calls reports how many times op has been invoked.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// enter records a call of op and returns the failure it must produce, if any.
// The caller holds m.mu.
func (m *Memory) enter(ctx context.Context, op string) error {
	m.calls[op]++
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	if !m.available {
		return fmt.Errorf("%s: %w", op, ErrUnavailable)
	}
	if err, ok := m.failAt[op][m.calls[op]]; ok {
		delete(m.failAt[op], m.calls[op])
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (m *Memory) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enter(ctx, "Ping")
}

func (m *Memory) Close() error { return nil }

func clonePage(p models.Page) models.Page {
	p.Content = slices.Clone(p.Content)
	if p.ParentID != nil {
		parent := *p.ParentID
		p.ParentID = &parent
	}
	return p
}

func cloneTodo(t models.TodoItem) models.TodoItem {
	t.Notes = slices.Clone(t.Notes)
	return t
}

func (m *Memory) ListPages(ctx context.Context, ownerID string) ([]models.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "ListPages"); err != nil {
		return nil, err
	}
	out := make([]models.Page, 0)
	for _, p := range m.pages {
		if p.OwnerID == ownerID {
			out = append(out, clonePage(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) GetPage(ctx context.Context, ownerID, id string) (*models.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "GetPage"); err != nil {
		return nil, err
	}
	p, ok := m.pages[id]
	if !ok || p.OwnerID != ownerID {
		return nil, fmt.Errorf("get page: %w", ErrNotFound)
	}
	p = clonePage(p)
	return &p, nil
}

func (m *Memory) InsertPage(ctx context.Context, p *models.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "InsertPage"); err != nil {
		return err
	}
	if cur, ok := m.pages[p.ID]; ok && cur.OwnerID != p.OwnerID {
		return fmt.Errorf("insert page: %w: id owned by another user", ErrRejected)
	}
	m.pages[p.ID] = clonePage(*p)
	return nil
}

func (m *Memory) UpdatePage(ctx context.Context, p *models.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "UpdatePage"); err != nil {
		return err
	}
	cur, ok := m.pages[p.ID]
	if !ok || cur.OwnerID != p.OwnerID {
		return fmt.Errorf("update page: %w: no row matched", ErrRejected)
	}
	next := clonePage(*p)
	next.CreatedAt = cur.CreatedAt
	m.pages[p.ID] = next
	return nil
}

func (m *Memory) DeletePage(ctx context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "DeletePage"); err != nil {
		return err
	}
	if cur, ok := m.pages[id]; ok && cur.OwnerID == ownerID {
		delete(m.pages, id)
	}
	return nil
}

func (m *Memory) ListTodos(ctx context.Context, ownerID, pageID string) ([]models.TodoItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "ListTodos"); err != nil {
		return nil, err
	}
	out := make([]models.TodoItem, 0)
	for _, t := range m.todos {
		if t.OwnerID == ownerID && t.PageID == pageID {
			out = append(out, cloneTodo(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) InsertTodo(ctx context.Context, t *models.TodoItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "InsertTodo"); err != nil {
		return err
	}
	if cur, ok := m.todos[t.ID]; ok && cur.OwnerID != t.OwnerID {
		return fmt.Errorf("insert todo: %w: id owned by another user", ErrRejected)
	}
	m.todos[t.ID] = cloneTodo(*t)
	return nil
}

func (m *Memory) UpdateTodo(ctx context.Context, t *models.TodoItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "UpdateTodo"); err != nil {
		return err
	}
	cur, ok := m.todos[t.ID]
	if !ok || cur.OwnerID != t.OwnerID {
		return fmt.Errorf("update todo: %w: no row matched", ErrRejected)
	}
	next := cloneTodo(*t)
	next.PageID = cur.PageID
	next.CreatedAt = cur.CreatedAt
	m.todos[t.ID] = next
	return nil
}

func (m *Memory) DeleteTodo(ctx context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "DeleteTodo"); err != nil {
		return err
	}
	if cur, ok := m.todos[id]; ok && cur.OwnerID == ownerID {
		delete(m.todos, id)
	}
	return nil
}

func (m *Memory) GetPreference(ctx context.Context, ownerID, key string) (*models.Preference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "GetPreference"); err != nil {
		return nil, err
	}
	p, ok := m.prefs[prefKey{ownerID, key}]
	if !ok {
		return nil, fmt.Errorf("get preference: %w", ErrNotFound)
	}
	p.Value = slices.Clone(p.Value)
	return &p, nil
}

func (m *Memory) UpsertPreference(ctx context.Context, p *models.Preference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "UpsertPreference"); err != nil {
		return err
	}
	next := *p
	next.Value = slices.Clone(p.Value)
	m.prefs[prefKey{p.OwnerID, p.Key}] = next
	return nil
}

func (m *Memory) ListSecrets(ctx context.Context, ownerID string) ([]models.Secret, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "ListSecrets"); err != nil {
		return nil, err
	}
	out := make([]models.Secret, 0)
	for _, s := range m.secrets {
		if s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) GetSecret(ctx context.Context, ownerID, id string) (*models.Secret, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "GetSecret"); err != nil {
		return nil, err
	}
	s, ok := m.secrets[id]
	if !ok || s.OwnerID != ownerID {
		return nil, fmt.Errorf("get secret: %w", ErrNotFound)
	}
	return &s, nil
}

func (m *Memory) InsertSecret(ctx context.Context, s *models.Secret) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "InsertSecret"); err != nil {
		return err
	}
	if _, ok := m.secrets[s.ID]; ok {
		return fmt.Errorf("insert secret: %w: duplicate id", ErrRejected)
	}
	m.secrets[s.ID] = *s
	return nil
}

func (m *Memory) UpdateSecretEnvelope(ctx context.Context, ownerID, id, envelope string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "UpdateSecretEnvelope"); err != nil {
		return err
	}
	s, ok := m.secrets[id]
	if !ok || s.OwnerID != ownerID {
		return fmt.Errorf("update secret: %w: no row matched", ErrRejected)
	}
	s.Envelope = envelope
	s.UpdatedAt = updatedAt
	m.secrets[id] = s
	return nil
}

func (m *Memory) DeleteSecret(ctx context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "DeleteSecret"); err != nil {
		return err
	}
	if s, ok := m.secrets[id]; ok && s.OwnerID == ownerID {
		delete(m.secrets, id)
	}
	return nil
}

func (m *Memory) GetPin(ctx context.Context, ownerID string) (*models.PinRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "GetPin"); err != nil {
		return nil, err
	}
	p, ok := m.pins[ownerID]
	if !ok {
		return nil, fmt.Errorf("get pin: %w", ErrNotFound)
	}
	return &p, nil
}

func (m *Memory) UpsertPin(ctx context.Context, p *models.PinRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "UpsertPin"); err != nil {
		return err
	}
	next := *p
	if cur, ok := m.pins[p.OwnerID]; ok {
		next.CreatedAt = cur.CreatedAt
	}
	m.pins[p.OwnerID] = next
	return nil
}
