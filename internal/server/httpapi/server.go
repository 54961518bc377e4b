// Package httpapi exposes the support chat services over HTTP/JSON.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/supportchat/internal/logging"
	"github.com/dmitrijs2005/supportchat/internal/server/auth"
	"github.com/dmitrijs2005/supportchat/internal/server/models"
	"github.com/dmitrijs2005/supportchat/internal/server/services"
	"github.com/gorilla/mux"
)

const (
	apiName       = "Poufmaker API"
	apiVersion    = "1.0.0"
	shutdownGrace = 10 * time.Second
)

// UserService is the account side of the API.
type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	ConfirmEmail(ctx context.Context, token string) (*models.User, error)
	Login(ctx context.Context, email, password string, client services.ClientInfo) (*services.LoginResult, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// SessionService lists a user's own sessions.
type SessionService interface {
	ListSessions(ctx context.Context, userID string, limit int) ([]*models.Session, error)
}

// ConversationService is the conversation ledger.
type ConversationService interface {
	CreateConversation(ctx context.Context, ownerID, guestName, guestPhone *string, initialMessage string) (*models.Conversation, *models.Message, error)
	AppendMessage(ctx context.Context, conversationID, content string, isUser bool) (*models.Message, error)
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	ListConversations(ctx context.Context, ownerID *string) ([]*models.ConversationPreview, error)
	ListMessages(ctx context.Context, conversationID string, limit int, before *time.Time) ([]*models.Message, error)
}

// TokenVerifier turns a bearer token into an identity.
type TokenVerifier interface {
	Verify(token string) (*auth.Identity, error)
}

type HTTPServer struct {
	address  string
	users    UserService
	sessions SessionService
	convs    ConversationService
	tokens   TokenVerifier
	logger   logging.Logger
	now      func() time.Time
}

func NewHTTPServer(address string, l logging.Logger, us UserService, ss SessionService, cs ConversationService, tv TokenVerifier) *HTTPServer {
	return &HTTPServer{
		address:  address,
		users:    us,
		sessions: ss,
		convs:    cs,
		tokens:   tv,
		logger:   l.With("module", "http_server"),
		now:      time.Now,
	}
}

const apiPrefix = "/api"

// Handler builds the router with its middleware chain.
func (s *HTTPServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.recoverer, s.requestID, s.accessLog, s.identify)

	// Routes live on the root router so a method mismatch reaches
	// MethodNotAllowedHandler; a PathPrefix subrouter reports it as not found.
	r.HandleFunc(apiPrefix, s.health).Methods(http.MethodGet)

	r.HandleFunc(apiPrefix+"/auth/register", s.register).Methods(http.MethodPost)
	r.HandleFunc(apiPrefix+"/auth/login", s.login).Methods(http.MethodPost)
	r.HandleFunc(apiPrefix+"/auth/confirm", s.confirmEmail).Methods(http.MethodPost)
	r.HandleFunc(apiPrefix+"/auth/password-reset/request", s.requestPasswordReset).Methods(http.MethodPost)
	r.HandleFunc(apiPrefix+"/auth/password-reset", s.resetPassword).Methods(http.MethodPost)
	r.HandleFunc(apiPrefix+"/auth/sessions", s.listSessions).Methods(http.MethodGet)

	r.HandleFunc(apiPrefix+"/conversations", s.listConversations).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/conversations", s.createConversation).Methods(http.MethodPost)
	r.HandleFunc(apiPrefix+"/conversations/{id}/messages", s.listMessages).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/conversations/{id}/messages", s.appendMessage).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed"})
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve is Run on an existing listener.
func (s *HTTPServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	stopped := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
		defer cancel()
		stopped <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-stopped
}
