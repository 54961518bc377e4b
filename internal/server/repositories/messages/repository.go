// Package messages declares the repository contract for conversation
// messages.
package messages

import (
	"context"
	"time"

	"github.com/dmitrijs2005/supportchat/internal/server/models"
)

// Repository stores messages.
type Repository interface {
	Create(ctx context.Context, m *models.Message) error

	// List returns at most limit messages of conversationID, newest first
	// (insertion order breaks timestamp ties), strictly older than before
	// when before is set.
	List(ctx context.Context, conversationID string, limit int, before *time.Time) ([]*models.Message, error)
}
