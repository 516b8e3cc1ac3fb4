package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/meduploads/internal/dbx"
	"github.com/dmitrijs2005/meduploads/internal/server/repositories/documents"
	"github.com/dmitrijs2005/meduploads/internal/server/repositories/files"
	"github.com/dmitrijs2005/meduploads/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Documents(db dbx.DBTX) documents.Repository
	Files(db dbx.DBTX) files.Repository
}
