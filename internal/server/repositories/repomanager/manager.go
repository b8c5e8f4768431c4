package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/opacity/internal/dbx"
	"github.com/dmitrijs2005/opacity/internal/server/repositories/archives"
	"github.com/dmitrijs2005/opacity/internal/server/repositories/clients"
	"github.com/dmitrijs2005/opacity/internal/server/repositories/dimensions"
	"github.com/dmitrijs2005/opacity/internal/server/repositories/likes"
	"github.com/dmitrijs2005/opacity/internal/server/repositories/owners"
)

// RepositoryManager vends repositories bound to a DBTX, so the same service
// code can run against *sql.DB or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Owners(db dbx.DBTX) owners.Repository
	Clients(db dbx.DBTX) clients.Repository
	Archives(db dbx.DBTX) archives.Repository
	Dimensions(db dbx.DBTX) dimensions.Repository
	Likes(db dbx.DBTX) likes.Repository
}
