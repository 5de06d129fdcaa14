package repomanager

import (
	"context"
	"database/sql"

	"github.com/dpetrovsky/webauth/internal/dbx"
	"github.com/dpetrovsky/webauth/internal/server/repositories/users"
)

// RepositoryManager vends repository implementations bound to a DBTX (either
// the pooled *sql.DB or an open transaction) and exposes a schema migration
// hook.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}
