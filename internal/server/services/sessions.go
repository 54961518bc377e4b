package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/supportchat/internal/dbx"
	"github.com/dmitrijs2005/supportchat/internal/logging"
	"github.com/dmitrijs2005/supportchat/internal/server/models"
	"github.com/dmitrijs2005/supportchat/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const defaultSessionListLimit = 20

// SessionStore keeps the log of issued sessions and the login audit trail.
// Sessions are never updated or revoked; expiry is carried by the token.
type SessionStore struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	audit       *AuditRecorder
	dbTimeout   time.Duration
	logger      logging.Logger
	now         func() time.Time
}

func NewSessionStore(db *sql.DB, m repomanager.RepositoryManager, audit *AuditRecorder, dbTimeout time.Duration, logger logging.Logger) *SessionStore {
	return &SessionStore{
		db:          db,
		repomanager: m,
		audit:       audit,
		dbTimeout:   dbTimeout,
		logger:      logger.With("module", "sessions"),
		now:         time.Now,
	}
}

// CreateSession stores a new session. Any number of sessions per user may
// coexist.
func (s *SessionStore) CreateSession(ctx context.Context, userID, token string, expiresAt time.Time, ip, userAgent string) (*models.Session, error) {
	ctx, cancel := dbx.WithTimeout(ctx, s.dbTimeout)
	defer cancel()
	return s.createSession(ctx, s.db, userID, token, expiresAt, ip, userAgent)
}

func (s *SessionStore) createSession(ctx context.Context, db dbx.DBTX, userID, token string, expiresAt time.Time, ip, userAgent string) (*models.Session, error) {
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		IPAddress: ip,
		UserAgent: userAgent,
	}
	created, err := s.repomanager.Sessions(db).Create(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}
	return created, nil
}

// RecordLoginAttempt hands the attempt to the audit recorder and returns at
// once. Attempts without a resolved user are not kept.
func (s *SessionStore) RecordLoginAttempt(ctx context.Context, userID *string, ip, userAgent string, success bool, reason *string) {
	if userID == nil {
		s.logger.Debug(ctx, "login attempt without user not recorded", "ip", ip)
		return
	}
	s.audit.Record(ctx, &models.LoginAttempt{
		ID:            uuid.NewString(),
		UserID:        userID,
		IPAddress:     ip,
		UserAgent:     userAgent,
		Success:       success,
		FailureReason: reason,
		CreatedAt:     s.now().UTC(),
	})
}

// ListSessions returns userID's sessions, newest first.
func (s *SessionStore) ListSessions(ctx context.Context, userID string, limit int) ([]*models.Session, error) {
	if limit <= 0 || limit > MaxPageLimit {
		limit = defaultSessionListLimit
	}
	ctx, cancel := dbx.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	list, err := s.repomanager.Sessions(s.db).ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing sessions: %w", err)
	}
	return list, nil
}
