// Package repomanager vends repository implementations bound to a database
// handle, so services can run the same repository code against *sql.DB or an
// open transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/vyapaars/syncledger/internal/dbx"
	"github.com/vyapaars/syncledger/internal/server/repositories/actions"
	"github.com/vyapaars/syncledger/internal/server/repositories/identities"
	"github.com/vyapaars/syncledger/internal/server/repositories/refreshtokens"
)

// RepositoryManager constructs repositories and owns schema migrations.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Identities(db dbx.DBTX) identities.Repository
	Actions(db dbx.DBTX) actions.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
