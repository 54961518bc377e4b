package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/supportchat/internal/common"
	"github.com/dmitrijs2005/supportchat/internal/dbx"
	"github.com/dmitrijs2005/supportchat/internal/logging"
	"github.com/dmitrijs2005/supportchat/internal/server/auth"
	"github.com/dmitrijs2005/supportchat/internal/server/config"
	"github.com/dmitrijs2005/supportchat/internal/server/models"
	"github.com/dmitrijs2005/supportchat/internal/server/repositories/conversations"
	"github.com/dmitrijs2005/supportchat/internal/server/repositories/loginattempts"
	"github.com/dmitrijs2005/supportchat/internal/server/repositories/messages"
	"github.com/dmitrijs2005/supportchat/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/supportchat/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
)

// --- in-memory store behind every fake repository ---

type memStore struct {
	mu sync.Mutex

	users    map[string]*models.User
	sessions []*models.Session
	attempts []*models.LoginAttempt
	convs    map[string]*models.Conversation
	msgs     []*models.Message
	seq      int64
	msgSeq   map[string]int64

	// injected failures
	createUserErr      error
	createSessionErr   error
	updateLastLoginErr error
	createAttemptErr   error
	createMessageErr   error

	// observed arguments
	lastMessageLimit  int
	lastMessageBefore *time.Time
	lastSessionLimit  int
	listConvCalls     int
	attemptCtxErrs    []error
}

func newMemStore() *memStore {
	return &memStore{
		users:  map[string]*models.User{},
		convs:  map[string]*models.Conversation{},
		msgSeq: map[string]int64{},
	}
}

type fakeRepoManager struct{ s *memStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return &memUsers{m.s} }
func (m *fakeRepoManager) Sessions(dbx.DBTX) sessions.Repository           { return &memSessions{m.s} }
func (m *fakeRepoManager) LoginAttempts(dbx.DBTX) loginattempts.Repository { return &memAttempts{m.s} }
func (m *fakeRepoManager) Conversations(dbx.DBTX) conversations.Repository { return &memConversations{m.s} }
func (m *fakeRepoManager) Messages(dbx.DBTX) messages.Repository           { return &memMessages{m.s} }

type memUsers struct{ s *memStore }

func (r *memUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.createUserErr != nil {
		return nil, r.s.createUserErr
	}
	for _, other := range r.s.users {
		if other.Email == u.Email {
			return nil, common.ErrConflict
		}
	}
	u.CreatedAt = time.Now().UTC()
	cp := *u
	r.s.users[u.ID] = &cp
	return u, nil
}

func (r *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUsers) ConfirmEmail(ctx context.Context, token string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.ConfirmationToken != nil && *u.ConfirmationToken == token {
			u.EmailConfirmed = true
			u.ConfirmationToken = nil
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memUsers) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.updateLastLoginErr != nil {
		return r.s.updateLastLoginErr
	}
	u, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.LastLoginAt = &at
	return nil
}

func (r *memUsers) UpdatePassword(ctx context.Context, id string, hash, salt []byte) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash, u.PasswordSalt = hash, salt
	return nil
}

type memSessions struct{ s *memStore }

func (r *memSessions) Create(ctx context.Context, sess *models.Session) (*models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.createSessionErr != nil {
		return nil, r.s.createSessionErr
	}
	sess.CreatedAt = time.Now().UTC()
	cp := *sess
	r.s.sessions = append(r.s.sessions, &cp)
	return sess, nil
}

func (r *memSessions) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.lastSessionLimit = limit
	var out []*models.Session
	for i := len(r.s.sessions) - 1; i >= 0 && len(out) < limit; i-- {
		if r.s.sessions[i].UserID == userID {
			cp := *r.s.sessions[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memAttempts struct{ s *memStore }

func (r *memAttempts) Create(ctx context.Context, a *models.LoginAttempt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.attemptCtxErrs = append(r.s.attemptCtxErrs, ctx.Err())
	if r.s.createAttemptErr != nil {
		return r.s.createAttemptErr
	}
	cp := *a
	r.s.attempts = append(r.s.attempts, &cp)
	return nil
}

type memConversations struct{ s *memStore }

func (r *memConversations) Create(ctx context.Context, c *models.Conversation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *c
	r.s.convs[c.ID] = &cp
	return nil
}

func (r *memConversations) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.convs[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memConversations) GetForUpdate(ctx context.Context, id string) (*models.Conversation, error) {
	return r.GetByID(ctx, id)
}

func (r *memConversations) Touch(ctx context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.convs[id]
	if !ok {
		return common.ErrorNotFound
	}
	if at.After(c.UpdatedAt) {
		c.UpdatedAt = at
	}
	return nil
}

func (r *memConversations) ListWithLastMessage(ctx context.Context, ownerID *string) ([]*models.ConversationPreview, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.listConvCalls++
	out := []*models.ConversationPreview{}
	for _, c := range r.s.convs {
		if ownerID != nil && (c.UserID == nil || *c.UserID != *ownerID) {
			continue
		}
		out = append(out, &models.ConversationPreview{Conversation: *c, Messages: []*models.Message{}})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

type memMessages struct{ s *memStore }

func (r *memMessages) Create(ctx context.Context, m *models.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.createMessageErr != nil {
		return r.s.createMessageErr
	}
	r.s.seq++
	r.s.msgSeq[m.ID] = r.s.seq
	cp := *m
	r.s.msgs = append(r.s.msgs, &cp)
	return nil
}

func (r *memMessages) List(ctx context.Context, conversationID string, limit int, before *time.Time) ([]*models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.lastMessageLimit = limit
	r.s.lastMessageBefore = before

	var out []*models.Message
	for _, m := range r.s.msgs {
		if m.ConversationID != conversationID {
			continue
		}
		if before != nil && !m.CreatedAt.Before(*before) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return r.s.msgSeq[out[i].ID] > r.s.msgSeq[out[j].ID]
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) messagesOf(conversationID string) []*models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Message
	for _, m := range s.msgs {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out
}

func (s *memStore) attemptsSnapshot() []*models.LoginAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.LoginAttempt(nil), s.attempts...)
}

// --- recording notifier ---

type sentEmail struct {
	kind  string
	email string
	token string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (n *recordingNotifier) SendVerificationEmail(ctx context.Context, email, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentEmail{"verify", email, token})
	return n.err
}

func (n *recordingNotifier) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentEmail{"reset", email, token})
	return n.err
}

// --- environment ---

const testSecret = "test-secret"

type testEnv struct {
	db       *sql.DB
	mock     sqlmock.Sqlmock
	store    *memStore
	tokens   *auth.TokenService
	audit    *AuditRecorder
	sessions *SessionStore
	users    *UserService
	convs    *ConversationService
	notifier *recordingNotifier
}

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, mock := newSQLMockDB(t)
	return newTestEnvWithDB(t, db, mock)
}

func newTestEnvWithDB(t *testing.T, db *sql.DB, mock sqlmock.Sqlmock) *testEnv {
	t.Helper()
	cfg := &config.Config{
		SessionValidityDuration:       24 * time.Hour,
		PasswordResetValidityDuration: time.Hour,
		DBTimeout:                     time.Second,
	}
	store := newMemStore()
	rm := &fakeRepoManager{s: store}
	logger := logging.NewNop()

	tokens := auth.NewTokenService([]byte(testSecret), cfg.SessionValidityDuration)
	audit := NewAuditRecorder(db, rm, logger, 16, time.Second)
	t.Cleanup(audit.Close)
	sess := NewSessionStore(db, rm, audit, cfg.DBTimeout, logger)
	notifier := &recordingNotifier{}

	return &testEnv{
		db:       db,
		mock:     mock,
		store:    store,
		tokens:   tokens,
		audit:    audit,
		sessions: sess,
		users:    NewUserService(db, rm, cfg, tokens, sess, notifier, logger),
		convs:    NewConversationService(db, rm, cfg, logger),
		notifier: notifier,
	}
}

func strPtr(s string) *string { return &s }
