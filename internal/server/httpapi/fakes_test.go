package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/supportchat/internal/common"
	"github.com/dmitrijs2005/supportchat/internal/logging"
	"github.com/dmitrijs2005/supportchat/internal/server/auth"
	"github.com/dmitrijs2005/supportchat/internal/server/models"
	"github.com/dmitrijs2005/supportchat/internal/server/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	mu         sync.Mutex
	byEmail    map[string]*models.User
	passwords  map[string]string
	lastClient services.ClientInfo
	resetErr   error
	confirmErr error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: map[string]*models.User{}, passwords: map[string]string{}}
}

func (f *fakeUsers) add(u *models.User, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byEmail[u.Email] = u
	f.passwords[u.Email] = password
}

func (f *fakeUsers) Register(ctx context.Context, in services.RegisterInput) (*models.User, error) {
	if in.FullName == "" || in.Email == "" || in.Password == "" {
		return nil, common.NewValidationError("", "Full name, email, and password are required")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail[in.Email]; ok {
		return nil, common.ErrConflict
	}
	tok := uuid.NewString()
	u := &models.User{
		ID: uuid.NewString(), FullName: in.FullName, Email: in.Email, PhoneNumber: in.PhoneNumber,
		PasswordHash: []byte("hash"), PasswordSalt: []byte("salt"), Role: models.RoleClient,
		ConfirmationToken: &tok, CreatedAt: time.Now().UTC(),
	}
	f.byEmail[in.Email] = u
	f.passwords[in.Email] = in.Password
	return u, nil
}

func (f *fakeUsers) ConfirmEmail(ctx context.Context, token string) (*models.User, error) {
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	return &models.User{EmailConfirmed: true}, nil
}

func (f *fakeUsers) Login(ctx context.Context, email, password string, client services.ClientInfo) (*services.LoginResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastClient = client
	u, ok := f.byEmail[email]
	if !ok || f.passwords[email] != password {
		return nil, common.ErrInvalidCredentials
	}
	if !u.EmailConfirmed {
		return nil, common.ErrUnconfirmed
	}
	return &services.LoginResult{Token: "tok-" + u.ID, User: u}, nil
}

func (f *fakeUsers) RequestPasswordReset(ctx context.Context, email string) error { return nil }

func (f *fakeUsers) ResetPassword(ctx context.Context, token, newPassword string) error {
	return f.resetErr
}

type fakeSessions struct {
	userID string
	limit  int
}

func (f *fakeSessions) ListSessions(ctx context.Context, userID string, limit int) ([]*models.Session, error) {
	f.userID, f.limit = userID, limit
	return []*models.Session{{ID: "s1", UserID: userID, Token: "secret-token", IPAddress: "10.0.0.1"}}, nil
}

type fakeConvs struct {
	mu         sync.Mutex
	convs      map[string]*models.Conversation
	msgs       map[string][]*models.Message
	lastLimit  int
	lastBefore *time.Time
	lastIsUser *bool
	listErr    error
}

func newFakeConvs() *fakeConvs {
	return &fakeConvs{convs: map[string]*models.Conversation{}, msgs: map[string][]*models.Message{}}
}

func (f *fakeConvs) seed(owner *string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.NewString()
	now := time.Now().UTC()
	f.convs[id] = &models.Conversation{ID: id, UserID: owner, CreatedAt: now, UpdatedAt: now}
	return id
}

func (f *fakeConvs) CreateConversation(ctx context.Context, ownerID, guestName, guestPhone *string, initialMessage string) (*models.Conversation, *models.Message, error) {
	if initialMessage == "" {
		return nil, nil, common.NewValidationError("initialMessage", "is required")
	}
	id := f.seed(ownerID)
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.convs[id]
	c.UserName, c.UserPhone = guestName, guestPhone
	m := &models.Message{ID: uuid.NewString(), ConversationID: id, Content: initialMessage, IsUser: true, CreatedAt: c.CreatedAt}
	f.msgs[id] = append(f.msgs[id], m)
	return c, m, nil
}

func (f *fakeConvs) AppendMessage(ctx context.Context, conversationID, content string, isUser bool) (*models.Message, error) {
	if content == "" {
		return nil, common.NewValidationError("content", "is required")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastIsUser = &isUser
	if _, ok := f.convs[conversationID]; !ok {
		return nil, common.ErrorNotFound
	}
	m := &models.Message{ID: uuid.NewString(), ConversationID: conversationID, Content: content, IsUser: isUser, CreatedAt: time.Now().UTC()}
	f.msgs[conversationID] = append(f.msgs[conversationID], m)
	return m, nil
}

func (f *fakeConvs) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return c, nil
}

func (f *fakeConvs) ListConversations(ctx context.Context, ownerID *string) ([]*models.ConversationPreview, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.ConversationPreview{}
	for _, c := range f.convs {
		if ownerID != nil && (c.UserID == nil || *c.UserID != *ownerID) {
			continue
		}
		out = append(out, &models.ConversationPreview{Conversation: *c, Messages: []*models.Message{}})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeConvs) ListMessages(ctx context.Context, conversationID string, limit int, before *time.Time) ([]*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit, f.lastBefore = limit, before
	return append([]*models.Message{}, f.msgs[conversationID]...), nil
}

// --- harness ---

type apiEnv struct {
	srv      *HTTPServer
	handler  http.Handler
	users    *fakeUsers
	sessions *fakeSessions
	convs    *fakeConvs
	tokens   *auth.TokenService
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	env := &apiEnv{
		users:    newFakeUsers(),
		sessions: &fakeSessions{},
		convs:    newFakeConvs(),
		tokens:   auth.NewTokenService([]byte("http-test-secret"), time.Hour),
	}
	env.srv = NewHTTPServer("127.0.0.1:0", logging.NewNop(), env.users, env.sessions, env.convs, env.tokens)
	env.handler = env.srv.Handler()
	return env
}

func (e *apiEnv) token(t *testing.T, userID string, role models.Role) string {
	t.Helper()
	tok, err := e.tokens.Issue(auth.Identity{UserID: userID, Email: userID + "@example.com", Role: role})
	require.NoError(t, err)
	return tok
}

func (e *apiEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(v))
	return &buf
}
