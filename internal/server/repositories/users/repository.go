package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/supportchat/internal/server/models"
)

type Repository interface {
	// Create inserts user. A taken email yields common.ErrConflict.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// ConfirmEmail consumes a confirmation token and marks the owner confirmed.
	ConfirmEmail(ctx context.Context, token string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdatePassword(ctx context.Context, id string, hash, salt []byte) error
}
