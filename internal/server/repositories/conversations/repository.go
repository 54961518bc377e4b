// Package conversations declares the server-side repository contract for
// support conversations.
package conversations

import (
	"context"
	"time"

	"github.com/dmitrijs2005/supportchat/internal/server/models"
)

// Repository stores conversations. Methods that change updated_at are meant
// to run inside the same transaction as the message write they reflect.
type Repository interface {
	Create(ctx context.Context, c *models.Conversation) error

	// GetByID returns common.ErrorNotFound when id is unknown.
	GetByID(ctx context.Context, id string) (*models.Conversation, error)

	// GetForUpdate is GetByID plus a row lock held until the enclosing
	// transaction ends.
	GetForUpdate(ctx context.Context, id string) (*models.Conversation, error)

	// Touch moves updated_at forward to at. It never moves it backwards.
	Touch(ctx context.Context, id string, at time.Time) error

	// ListWithLastMessage returns conversations, optionally only those owned
	// by ownerID, newest activity first, each with its latest message.
	ListWithLastMessage(ctx context.Context, ownerID *string) ([]*models.ConversationPreview, error)
}
