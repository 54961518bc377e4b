package sessions

import (
	"context"

	"github.com/dmitrijs2005/supportchat/internal/dbx"
	"github.com/dmitrijs2005/supportchat/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a session row. Several live sessions per user are allowed.
func (r *PostgresRepository) Create(ctx context.Context, s *models.Session) (*models.Session, error) {
	query := `
		INSERT INTO user_sessions (id, user_id, token, expires_at, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))
		RETURNING created_at
	`
	if err := r.db.QueryRowContext(ctx, query,
		s.ID, s.UserID, s.Token, s.ExpiresAt, s.IPAddress, s.UserAgent).Scan(&s.CreatedAt); err != nil {
		return nil, dbx.Classify(err)
	}
	return s, nil
}

// ListByUser returns up to limit sessions for userID ordered by creation, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Session, error) {
	query := `
		SELECT id, user_id, token, expires_at, COALESCE(ip_address, ''), COALESCE(user_agent, ''), created_at
		FROM user_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, dbx.Classify(err)
	}
	defer rows.Close()

	var result []*models.Session
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.Token, &s.ExpiresAt, &s.IPAddress, &s.UserAgent, &s.CreatedAt); err != nil {
			return nil, dbx.Classify(err)
		}
		result = append(result, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.Classify(err)
	}
	return result, nil
}
