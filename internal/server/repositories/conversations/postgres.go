package conversations

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/supportchat/internal/common"
	"github.com/dmitrijs2005/supportchat/internal/dbx"
	"github.com/dmitrijs2005/supportchat/internal/server/models"
)

// PostgresRepository implements conversation storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Conversation) error {
	query := `
		INSERT INTO conversations (id, user_id, user_name, user_phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.ExecContext(ctx, query,
		c.ID, c.UserID, c.UserName, c.UserPhone, c.CreatedAt, c.UpdatedAt); err != nil {
		return dbx.Classify(err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	query := `
		SELECT id, user_id, user_name, user_phone, created_at, updated_at
		FROM conversations
		WHERE id = $1
	`
	return scanConversation(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, id string) (*models.Conversation, error) {
	query := `
		SELECT id, user_id, user_name, user_phone, created_at, updated_at
		FROM conversations
		WHERE id = $1
		FOR UPDATE
	`
	return scanConversation(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) Touch(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE conversations SET updated_at = GREATEST(updated_at, $2) WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return dbx.Classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbx.Classify(err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) ListWithLastMessage(ctx context.Context, ownerID *string) ([]*models.ConversationPreview, error) {
	query := `
		SELECT c.id, c.user_id, c.user_name, c.user_phone, c.created_at, c.updated_at,
			m.id, m.content, m.is_user, m.created_at
		FROM conversations c
		LEFT JOIN LATERAL (
			SELECT id, content, is_user, created_at
			FROM messages
			WHERE conversation_id = c.id
			ORDER BY created_at DESC, seq DESC
			LIMIT 1
		) m ON TRUE
		WHERE $1::uuid IS NULL OR c.user_id = $1::uuid
		ORDER BY c.updated_at DESC, c.id
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, dbx.Classify(err)
	}
	defer rows.Close()

	result := []*models.ConversationPreview{}
	for rows.Next() {
		var (
			p         models.ConversationPreview
			msgID     sql.NullString
			content   sql.NullString
			isUser    sql.NullBool
			createdAt sql.NullTime
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.UserName, &p.UserPhone, &p.CreatedAt, &p.UpdatedAt,
			&msgID, &content, &isUser, &createdAt); err != nil {
			return nil, dbx.Classify(err)
		}
		p.Messages = []*models.Message{}
		if msgID.Valid {
			p.Messages = append(p.Messages, &models.Message{
				ID:             msgID.String,
				ConversationID: p.ID,
				Content:        content.String,
				IsUser:         isUser.Bool,
				CreatedAt:      createdAt.Time,
			})
		}
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.Classify(err)
	}
	return result, nil
}

func scanConversation(row *sql.Row) (*models.Conversation, error) {
	c := &models.Conversation{}
	if err := row.Scan(&c.ID, &c.UserID, &c.UserName, &c.UserPhone, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, dbx.Classify(err)
	}
	return c, nil
}
