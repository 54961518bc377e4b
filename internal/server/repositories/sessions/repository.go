// Package sessions declares the repository contract for issued login
// sessions. Session rows form an append-only log: there is no update or
// delete.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/supportchat/internal/server/models"
)

// Repository persists issued sessions.
type Repository interface {
	// Create stores s and fills in its server-side timestamps.
	Create(ctx context.Context, s *models.Session) (*models.Session, error)

	// ListByUser returns the sessions of userID, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.Session, error)
}
