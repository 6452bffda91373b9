package remote

import (
	"context"
	"strings"
)

// MemoryDSN selects the in-process backend.
const MemoryDSN = "memory://"

// Open returns the backend named by dsn: an empty DSN or one starting with
// "memory://" yields a fresh Memory, anything else is handed to pgx.
// With migrate set, the Postgres development schema is applied first.
func Open(ctx context.Context, dsn string, migrate bool) (API, error) {
	if dsn == "" || strings.HasPrefix(dsn, MemoryDSN) {
		return NewMemory(), nil
	}

	pg, err := OpenPostgres(dsn)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
	}
	return pg, nil
}
