package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/supportchat/internal/dbx"
	"github.com/dmitrijs2005/supportchat/internal/server/repositories/conversations"
	"github.com/dmitrijs2005/supportchat/internal/server/repositories/loginattempts"
	"github.com/dmitrijs2005/supportchat/internal/server/repositories/messages"
	"github.com/dmitrijs2005/supportchat/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/supportchat/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so services can pass
// either the pool or an open transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	LoginAttempts(db dbx.DBTX) loginattempts.Repository
	Conversations(db dbx.DBTX) conversations.Repository
	Messages(db dbx.DBTX) messages.Repository
}
