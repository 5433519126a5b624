package session

import (
	"context"

	"github.com/kailas-cloud/cityvec/internal/db"
	"github.com/kailas-cloud/cityvec/internal/db/sqldb"
)

// Opener acquires the table store for a session.
type Opener func(ctx context.Context, cfg sqldb.Config) (db.TableStore, error)

// OpenSQL is the default Opener backed by Postgres or SQLite.
func OpenSQL(ctx context.Context, cfg sqldb.Config) (db.TableStore, error) {
	s, err := sqldb.Open(ctx, cfg)
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped by the caller with ErrConnection
	}
	return s, nil
}
