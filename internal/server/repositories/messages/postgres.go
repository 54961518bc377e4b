package messages

import (
	"context"
	"time"

	"github.com/dmitrijs2005/supportchat/internal/dbx"
	"github.com/dmitrijs2005/supportchat/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, m *models.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, content, is_user, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, query,
		m.ID, m.ConversationID, m.Content, m.IsUser, m.CreatedAt); err != nil {
		return dbx.Classify(err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, conversationID string, limit int, before *time.Time) ([]*models.Message, error) {
	query := `
		SELECT id, conversation_id, content, is_user, created_at
		FROM messages
		WHERE conversation_id = $1
			AND ($2::timestamptz IS NULL OR created_at < $2::timestamptz)
		ORDER BY created_at DESC, seq DESC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, conversationID, before, limit)
	if err != nil {
		return nil, dbx.Classify(err)
	}
	defer rows.Close()

	result := []*models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Content, &m.IsUser, &m.CreatedAt); err != nil {
			return nil, dbx.Classify(err)
		}
		result = append(result, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.Classify(err)
	}
	return result, nil
}
