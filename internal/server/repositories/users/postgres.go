// Package users provides the PostgreSQL-backed account repository.
package users

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/supportchat/internal/common"
	"github.com/dmitrijs2005/supportchat/internal/dbx"
	"github.com/dmitrijs2005/supportchat/internal/server/models"
)

const userColumns = `id, full_name, email, phone_number, password_hash, password_salt,
		role, email_confirmed, confirmation_token, last_login_at, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (id, full_name, email, phone_number, password_hash, password_salt,
			role, email_confirmed, confirmation_token)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.FullName, user.Email, user.PhoneNumber, user.PasswordHash, user.PasswordSalt,
		string(user.Role), user.EmailConfirmed, user.ConfirmationToken).Scan(&user.CreatedAt)

	if err != nil {
		return nil, dbx.Classify(err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) ConfirmEmail(ctx context.Context, token string) (*models.User, error) {
	query :=
		`UPDATE users SET email_confirmed = TRUE, confirmation_token = NULL
		 WHERE confirmation_token = $1
		 RETURNING ` + userColumns

	return r.scanOne(r.db.QueryRowContext(ctx, query, token))
}

func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE users SET last_login_at = $2 WHERE id = $1`
	return r.execOne(ctx, query, id, at)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id string, hash, salt []byte) error {
	query := `UPDATE users SET password_hash = $2, password_salt = $3 WHERE id = $1`
	return r.execOne(ctx, query, id, hash, salt)
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
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

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var role string
	err := row.Scan(&user.ID, &user.FullName, &user.Email, &user.PhoneNumber,
		&user.PasswordHash, &user.PasswordSalt, &role, &user.EmailConfirmed,
		&user.ConfirmationToken, &user.LastLoginAt, &user.CreatedAt)
	if err != nil {
		return nil, dbx.Classify(err)
	}
	if user.Role, err = models.ParseRole(role); err != nil {
		return nil, err
	}
	return user, nil
}
