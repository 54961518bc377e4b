// Package services holds the server-side business logic: accounts and login,
// the session log with its audit trail, and the conversation ledger.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/supportchat/internal/common"
	"github.com/dmitrijs2005/supportchat/internal/cryptox"
	"github.com/dmitrijs2005/supportchat/internal/dbx"
	"github.com/dmitrijs2005/supportchat/internal/logging"
	"github.com/dmitrijs2005/supportchat/internal/server/auth"
	"github.com/dmitrijs2005/supportchat/internal/server/config"
	"github.com/dmitrijs2005/supportchat/internal/server/models"
	"github.com/dmitrijs2005/supportchat/internal/server/notify"
	"github.com/dmitrijs2005/supportchat/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const failureInvalidPassword = "Invalid password"

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	FullName    string
	Email       string
	PhoneNumber *string
	Password    string
}

// ClientInfo describes where a request came from.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// LoginResult is what a successful login hands back.
type LoginResult struct {
	Token   string
	User    *models.User
	Session *models.Session
}

// UserService handles registration, email confirmation, login and password
// reset.
type UserService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	tokens        *auth.TokenService
	sessions      *SessionStore
	notifier      notify.Notifier
	resetValidity time.Duration
	dbTimeout     time.Duration
	logger        logging.Logger
	now           func() time.Time
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	tokens *auth.TokenService, sessions *SessionStore, notifier notify.Notifier, logger logging.Logger) *UserService {
	return &UserService{
		db:            db,
		repomanager:   m,
		tokens:        tokens,
		sessions:      sessions,
		notifier:      notifier,
		resetValidity: cfg.PasswordResetValidityDuration,
		dbTimeout:     cfg.DBTimeout,
		logger:        logger.With("module", "users"),
		now:           time.Now,
	}
}

// Register creates an unconfirmed client account and sends the verification
// email. A taken email yields common.ErrConflict.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	fullName := strings.TrimSpace(in.FullName)
	email := strings.TrimSpace(in.Email)
	if fullName == "" {
		return nil, common.NewValidationError("fullName", "is required")
	}
	if email == "" {
		return nil, common.NewValidationError("email", "is required")
	}
	if in.Password == "" {
		return nil, common.NewValidationError("password", "is required")
	}

	dbCtx, cancel := dbx.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	repo := s.repomanager.Users(s.db)
	if _, err := repo.GetByEmail(dbCtx, email); err == nil {
		return nil, fmt.Errorf("email %s: %w", email, common.ErrConflict)
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	hash, salt, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	confirmation := uuid.NewString()
	user := &models.User{
		ID:                uuid.NewString(),
		FullName:          fullName,
		Email:             email,
		PhoneNumber:       blankToNil(in.PhoneNumber),
		PasswordHash:      hash,
		PasswordSalt:      salt,
		Role:              models.RoleClient,
		ConfirmationToken: &confirmation,
	}

	created, err := repo.Create(dbCtx, user)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	if err := s.notifier.SendVerificationEmail(ctx, created.Email, confirmation); err != nil {
		s.logger.Error(ctx, "verification email not sent", "user_id", created.ID, "error", err)
	}
	s.logger.Info(ctx, "user registered", "user_id", created.ID)
	return created, nil
}

// ConfirmEmail consumes a confirmation token. Tokens are single-use; an
// unknown or spent token yields common.ErrorNotFound.
func (s *UserService) ConfirmEmail(ctx context.Context, token string) (*models.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, common.NewValidationError("token", "is required")
	}
	ctx, cancel := dbx.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	user, err := s.repomanager.Users(s.db).ConfirmEmail(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("error confirming email: %w", err)
	}
	return user, nil
}

// Login checks credentials and opens a session. Unknown emails and wrong
// passwords both yield common.ErrInvalidCredentials; only the latter is
// audited. An unconfirmed account yields common.ErrUnconfirmed.
func (s *UserService) Login(ctx context.Context, email, password string, client ClientInfo) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, common.NewValidationError("", "email and password are required")
	}

	dbCtx, cancel := dbx.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	user, err := s.repomanager.Users(s.db).GetByEmail(dbCtx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			burnVerify(password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if !cryptox.VerifyPassword([]byte(password), user.PasswordHash, user.PasswordSalt) {
		reason := failureInvalidPassword
		s.sessions.RecordLoginAttempt(ctx, &user.ID, client.IP, client.UserAgent, false, &reason)
		return nil, common.ErrInvalidCredentials
	}

	if !user.EmailConfirmed {
		return nil, common.ErrUnconfirmed
	}

	token, err := s.tokens.Issue(auth.Identity{UserID: user.ID, Email: user.Email, Role: user.Role})
	if err != nil {
		return nil, fmt.Errorf("error issuing token: %w", err)
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	var session *models.Session
	err = dbx.WithTx(dbCtx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		session, err = s.sessions.createSession(ctx, tx, user.ID, token, now.Add(s.tokens.Validity()), client.IP, client.UserAgent)
		if err != nil {
			return err
		}
		if err := s.repomanager.Users(tx).UpdateLastLogin(ctx, user.ID, now); err != nil {
			return fmt.Errorf("error updating last login: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sessions.RecordLoginAttempt(ctx, &user.ID, client.IP, client.UserAgent, true, nil)
	user.LastLoginAt = &now

	return &LoginResult{Token: token, User: user, Session: session}, nil
}

// RequestPasswordReset mails a reset link when email belongs to an account.
// The caller cannot tell whether it did.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return common.NewValidationError("email", "is required")
	}

	dbCtx, cancel := dbx.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	user, err := s.repomanager.Users(s.db).GetByEmail(dbCtx, email)
	if errors.Is(err, common.ErrorNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error searching user: %w", err)
	}

	token, err := s.tokens.IssuePurpose(auth.Identity{UserID: user.ID, Email: user.Email, Role: user.Role},
		auth.PurposePasswordReset, s.resetValidity)
	if err != nil {
		return fmt.Errorf("error issuing reset token: %w", err)
	}

	if err := s.notifier.SendPasswordResetEmail(ctx, user.Email, token); err != nil {
		s.logger.Error(ctx, "password reset email not sent", "user_id", user.ID, "error", err)
	}
	return nil
}

// ResetPassword sets a new password for the holder of a reset token.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return common.NewValidationError("password", "is required")
	}
	id, err := s.tokens.VerifyPurpose(token, auth.PurposePasswordReset)
	if err != nil {
		return err
	}

	hash, salt, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	ctx, cancel := dbx.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	if err := s.repomanager.Users(s.db).UpdatePassword(ctx, id.UserID, hash, salt); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}
	s.logger.Info(ctx, "password reset", "user_id", id.UserID)
	return nil
}

// CreateAdmin creates a confirmed admin account. There is no HTTP route to
// it; it backs the admin bootstrap command.
func (s *UserService) CreateAdmin(ctx context.Context, fullName, email, password string) (*models.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.TrimSpace(email)
	if fullName == "" || email == "" || password == "" {
		return nil, common.NewValidationError("", "name, email and password are required")
	}

	hash, salt, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	ctx, cancel := dbx.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	user := &models.User{
		ID:             uuid.NewString(),
		FullName:       fullName,
		Email:          email,
		PasswordHash:   hash,
		PasswordSalt:   salt,
		Role:           models.RoleAdmin,
		EmailConfirmed: true,
	}
	created, err := s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error creating admin: %w", err)
	}
	return created, nil
}

func hashPassword(password string) (hash, salt []byte, err error) {
	pw := []byte(password)
	defer common.WipeByteArray(pw)

	hash, salt, err = cryptox.HashPassword(pw)
	if err != nil {
		return nil, nil, fmt.Errorf("error hashing password: %w", err)
	}
	return hash, salt, nil
}

var (
	dummyOnce sync.Once
	dummyHash []byte
	dummySalt []byte
)

// burnVerify spends the same work as a real password check so an unknown
// email answers no faster than a wrong password.
func burnVerify(password string) {
	dummyOnce.Do(func() {
		dummySalt = common.GenerateRandByteArray(cryptox.SaltSize)
		dummyHash = cryptox.DeriveKey(common.GenerateRandByteArray(16), dummySalt)
	})
	cryptox.VerifyPassword([]byte(password), dummyHash, dummySalt)
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
