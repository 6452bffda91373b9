package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrUnavailable = fmt.Errorf("remote: %w", common.ErrRemoteUnavailable)
	ErrRejected    = errors.New("remote: rejected")
	ErrNotFound    = fmt.Errorf("remote: %w", common.ErrNotFound)
)

// IsTransient reports whether err is worth retrying later.
func IsTransient(err error) bool {
	return err != nil && !errors.Is(err, ErrRejected) && !errors.Is(err, ErrNotFound)
}

// mapError classifies a database/sql error from the Postgres driver.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		class := pgErr.Code
		if len(class) > 2 {
			class = class[:2]
		}
		switch class {
		// connection exception, insufficient resources, operator intervention
		case "08", "53", "57":
			return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
		default:
			return fmt.Errorf("%s: %w: %w", op, ErrRejected, err)
		}
	}

	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
