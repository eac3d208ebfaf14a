package repomanager

import (
	"context"
	"database/sql"

	"github.com/tdnguyen/roomchat/internal/dbx"
	"github.com/tdnguyen/roomchat/internal/server/repositories/files"
	"github.com/tdnguyen/roomchat/internal/server/repositories/messages"
	"github.com/tdnguyen/roomchat/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so services can use
// the same constructors inside and outside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Messages(db dbx.DBTX) messages.Repository
	Files(db dbx.DBTX) files.Repository
}
