// Package loginattempts declares the audit-trail repository for login
// attempts.
package loginattempts

import (
	"context"

	"github.com/dmitrijs2005/supportchat/internal/server/models"
)

// Repository appends login attempts to the audit trail.
type Repository interface {
	Create(ctx context.Context, a *models.LoginAttempt) error
}
