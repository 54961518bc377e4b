package loginattempts

import (
	"context"

	"github.com/dmitrijs2005/supportchat/internal/dbx"
	"github.com/dmitrijs2005/supportchat/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.LoginAttempt) error {
	query := `
		INSERT INTO user_login_history (id, user_id, ip_address, user_agent, successful, failure_reason, created_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7)
	`
	if _, err := r.db.ExecContext(ctx, query,
		a.ID, a.UserID, a.IPAddress, a.UserAgent, a.Success, a.FailureReason, a.CreatedAt); err != nil {
		return dbx.Classify(err)
	}
	return nil
}
