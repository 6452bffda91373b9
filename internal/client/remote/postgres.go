package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/remote/migrations"
	"github.com/dmitrijs2005/gophnotes/internal/dbx"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Postgres implements API over database/sql with the pgx driver.
// Every statement is scoped by owner_id.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// OpenPostgres opens a pgx-backed connection pool for dsn.
func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return NewPostgres(db), nil
}

// Migrate applies the development schema.
func (r *Postgres) Migrate(ctx context.Context) error {
	p, err := goose.NewProvider(goose.DialectPostgres, r.db, migrations.Migrations)
	if err != nil {
		return fmt.Errorf("init remote migrations: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return mapError("migrate", err)
	}
	return nil
}

func (r *Postgres) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w: %w", ErrUnavailable, err)
	}
	return nil
}

func (r *Postgres) Close() error {
	return r.db.Close()
}

func jsonArg(raw json.RawMessage) any {
	if doc := models.Document(raw); doc != nil {
		return []byte(doc)
	}
	return nil
}

func jsonValue(b []byte) json.RawMessage {
	return models.Document(b)
}

// exactlyOne turns the result of an owner-scoped write into ErrRejected when
// no row matched.
func exactlyOne(op string, res sql.Result, err error) error {
	if err != nil {
		return mapError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w: no row matched", op, ErrRejected)
	}
	return nil
}

const pageColumns = `id, owner_id, parent_id, title, type, content, pinned, created_at, updated_at`

func scanPage(s dbx.Scanner) (models.Page, error) {
	var (
		p        models.Page
		parent   sql.NullString
		pageType string
		content  []byte
	)
	if err := s.Scan(&p.ID, &p.OwnerID, &parent, &p.Title, &pageType, &content, &p.Pinned, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return models.Page{}, err
	}
	p.ParentID = dbx.StringPtr(parent)
	p.Type = models.PageType(pageType)
	p.Content = jsonValue(content)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func (r *Postgres) ListPages(ctx context.Context, ownerID string) ([]models.Page, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE owner_id = $1 ORDER BY updated_at DESC`, ownerID)
	if err != nil {
		return nil, mapError("list pages", err)
	}
	list, err := dbx.CollectRows(rows, scanPage)
	if err != nil {
		return nil, mapError("list pages", err)
	}
	return list, nil
}

func (r *Postgres) GetPage(ctx context.Context, ownerID, id string) (*models.Page, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE owner_id = $1 AND id = $2`, ownerID, id)
	p, err := scanPage(row)
	if err != nil {
		return nil, mapError("get page", err)
	}
	return &p, nil
}

func (r *Postgres) InsertPage(ctx context.Context, p *models.Page) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO pages (`+pageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id)
		DO UPDATE SET
			parent_id = EXCLUDED.parent_id,
			title = EXCLUDED.title,
			type = EXCLUDED.type,
			content = EXCLUDED.content,
			pinned = EXCLUDED.pinned,
			updated_at = EXCLUDED.updated_at
			WHERE pages.owner_id = EXCLUDED.owner_id`,
		p.ID, p.OwnerID, dbx.NullString(p.ParentID), p.Title, string(p.Type), jsonArg(p.Content), p.Pinned,
		p.CreatedAt, p.UpdatedAt)
	return exactlyOne("insert page", res, err)
}

func (r *Postgres) UpdatePage(ctx context.Context, p *models.Page) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE pages SET parent_id = $3, title = $4, type = $5, content = $6, pinned = $7, updated_at = $8
		WHERE owner_id = $1 AND id = $2`,
		p.OwnerID, p.ID, dbx.NullString(p.ParentID), p.Title, string(p.Type), jsonArg(p.Content), p.Pinned, p.UpdatedAt)
	return exactlyOne("update page", res, err)
}

func (r *Postgres) DeletePage(ctx context.Context, ownerID, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pages WHERE owner_id = $1 AND id = $2`, ownerID, id)
	return mapError("delete page", err)
}

const todoColumns = `id, page_id, owner_id, text, notes, completed, created_at, updated_at`

func scanTodo(s dbx.Scanner) (models.TodoItem, error) {
	var (
		t     models.TodoItem
		notes []byte
	)
	if err := s.Scan(&t.ID, &t.PageID, &t.OwnerID, &t.Text, &notes, &t.Completed, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return models.TodoItem{}, err
	}
	t.Notes = jsonValue(notes)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

func (r *Postgres) ListTodos(ctx context.Context, ownerID, pageID string) ([]models.TodoItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+todoColumns+` FROM todo_items WHERE owner_id = $1 AND page_id = $2 ORDER BY created_at ASC`,
		ownerID, pageID)
	if err != nil {
		return nil, mapError("list todos", err)
	}
	list, err := dbx.CollectRows(rows, scanTodo)
	if err != nil {
		return nil, mapError("list todos", err)
	}
	return list, nil
}

func (r *Postgres) InsertTodo(ctx context.Context, t *models.TodoItem) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO todo_items (`+todoColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id)
		DO UPDATE SET
			text = EXCLUDED.text,
			notes = EXCLUDED.notes,
			completed = EXCLUDED.completed,
			updated_at = EXCLUDED.updated_at
			WHERE todo_items.owner_id = EXCLUDED.owner_id`,
		t.ID, t.PageID, t.OwnerID, t.Text, jsonArg(t.Notes), t.Completed, t.CreatedAt, t.UpdatedAt)
	return exactlyOne("insert todo", res, err)
}

func (r *Postgres) UpdateTodo(ctx context.Context, t *models.TodoItem) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE todo_items SET text = $3, notes = $4, completed = $5, updated_at = $6
		WHERE owner_id = $1 AND id = $2`,
		t.OwnerID, t.ID, t.Text, jsonArg(t.Notes), t.Completed, t.UpdatedAt)
	return exactlyOne("update todo", res, err)
}

func (r *Postgres) DeleteTodo(ctx context.Context, ownerID, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM todo_items WHERE owner_id = $1 AND id = $2`, ownerID, id)
	return mapError("delete todo", err)
}

func (r *Postgres) GetPreference(ctx context.Context, ownerID, key string) (*models.Preference, error) {
	p := &models.Preference{OwnerID: ownerID, Key: key}
	var value []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT value, updated_at FROM user_preferences WHERE owner_id = $1 AND key = $2`, ownerID, key).
		Scan(&value, &p.UpdatedAt)
	if err != nil {
		return nil, mapError("get preference", err)
	}
	p.Value = value
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func (r *Postgres) UpsertPreference(ctx context.Context, p *models.Preference) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_preferences (owner_id, key, value, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_id, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		p.OwnerID, p.Key, []byte(p.Value), p.UpdatedAt)
	return mapError("upsert preference", err)
}

const secretColumns = `id, owner_id, name, envelope, created_at, updated_at`

func scanSecret(s dbx.Scanner) (models.Secret, error) {
	var sec models.Secret
	if err := s.Scan(&sec.ID, &sec.OwnerID, &sec.Name, &sec.Envelope, &sec.CreatedAt, &sec.UpdatedAt); err != nil {
		return models.Secret{}, err
	}
	sec.CreatedAt = sec.CreatedAt.UTC()
	sec.UpdatedAt = sec.UpdatedAt.UTC()
	return sec, nil
}

func (r *Postgres) ListSecrets(ctx context.Context, ownerID string) ([]models.Secret, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+secretColumns+` FROM secrets WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, mapError("list secrets", err)
	}
	list, err := dbx.CollectRows(rows, scanSecret)
	if err != nil {
		return nil, mapError("list secrets", err)
	}
	return list, nil
}

func (r *Postgres) GetSecret(ctx context.Context, ownerID, id string) (*models.Secret, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+secretColumns+` FROM secrets WHERE owner_id = $1 AND id = $2`, ownerID, id)
	sec, err := scanSecret(row)
	if err != nil {
		return nil, mapError("get secret", err)
	}
	return &sec, nil
}

func (r *Postgres) InsertSecret(ctx context.Context, s *models.Secret) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO secrets (`+secretColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.OwnerID, s.Name, s.Envelope, s.CreatedAt, s.UpdatedAt)
	return mapError("insert secret", err)
}

func (r *Postgres) UpdateSecretEnvelope(ctx context.Context, ownerID, id, envelope string, updatedAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE secrets SET envelope = $3, updated_at = $4 WHERE owner_id = $1 AND id = $2`,
		ownerID, id, envelope, updatedAt)
	return exactlyOne("update secret", res, err)
}

func (r *Postgres) DeleteSecret(ctx context.Context, ownerID, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM secrets WHERE owner_id = $1 AND id = $2`, ownerID, id)
	return mapError("delete secret", err)
}

func (r *Postgres) GetPin(ctx context.Context, ownerID string) (*models.PinRecord, error) {
	p := &models.PinRecord{OwnerID: ownerID}
	err := r.db.QueryRowContext(ctx,
		`SELECT hash, created_at, updated_at FROM pin_records WHERE owner_id = $1`, ownerID).
		Scan(&p.Hash, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapError("get pin", err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func (r *Postgres) UpsertPin(ctx context.Context, p *models.PinRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pin_records (owner_id, hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_id)
		DO UPDATE SET hash = EXCLUDED.hash, updated_at = EXCLUDED.updated_at`,
		p.OwnerID, p.Hash, p.CreatedAt, p.UpdatedAt)
	return mapError("upsert pin", err)
}
