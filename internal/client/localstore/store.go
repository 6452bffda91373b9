package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"github.com/dmitrijs2005/gophnotes/internal/client/migrations"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/mutations"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/pages"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/preferences"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/todos"
	"github.com/dmitrijs2005/gophnotes/internal/dbx"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory store.
const MemoryPath = ":memory:"

// Tx is the set of repositories bound to one database handle, either the
// store itself or a transaction.
type Tx struct {
	Pages       pages.Repository
	Todos       todos.Repository
	Preferences preferences.Repository
	Mutations   mutations.Repository
}

func newTx(db dbx.DBTX) Tx {
	return Tx{
		Pages:       pages.NewSQLiteRepository(db),
		Todos:       todos.NewSQLiteRepository(db),
		Preferences: preferences.NewSQLiteRepository(db),
		Mutations:   mutations.NewSQLiteRepository(db),
	}
}

type Store struct {
	db     *sql.DB
	repos  Tx
	logger logging.Logger
}

// Open opens (creating if needed) the store at path and migrates it.
func Open(ctx context.Context, path string, logger logging.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open local store: %w", err)
	}

	s := &Store{db: db, repos: newTx(db), logger: logger}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func dsn(path string) string {
	if path == MemoryPath {
		return path
	}
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	return "file:" + path + "?" + q.Encode()
}

func (s *Store) provider() (*goose.Provider, error) {
	p, err := goose.NewProvider(goose.DialectSQLite3, s.db, migrations.Migrations)
	if err != nil {
		return nil, fmt.Errorf("init migrations: %w", err)
	}
	return p, nil
}

func (s *Store) migrate(ctx context.Context) error {
	p, err := s.provider()
	if err != nil {
		return err
	}
	results, err := p.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrate local store: %w", err)
	}
	for _, r := range results {
		s.logger.Info(ctx, "local store migrated", "version", r.Source.Version, "file", r.Source.Path)
	}
	return nil
}

// SchemaVersion reports the applied schema version.
func (s *Store) SchemaVersion(ctx context.Context) (int64, error) {
	p, err := s.provider()
	if err != nil {
		return 0, err
	}
	return p.GetDBVersion(ctx)
}

func (s *Store) Pages() pages.Repository             { return s.repos.Pages }
func (s *Store) Todos() todos.Repository             { return s.repos.Todos }
func (s *Store) Preferences() preferences.Repository { return s.repos.Preferences }
func (s *Store) Mutations() mutations.Repository     { return s.repos.Mutations }

// WithTx runs fn with repositories bound to a single transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, newTx(tx))
	})
}

// Snapshot writes a consistent copy of the store to dst, which must not exist.
func (s *Store) Snapshot(ctx context.Context, dst string) error {
	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, dst); err != nil {
		return fmt.Errorf("snapshot local store: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
