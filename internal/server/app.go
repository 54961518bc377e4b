// Package server wires the support chat backend together: database and
// migrations, services, the login audit writer, the mailer and the HTTP API.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/supportchat/internal/dbx"
	"github.com/dmitrijs2005/supportchat/internal/logging"
	"github.com/dmitrijs2005/supportchat/internal/server/auth"
	"github.com/dmitrijs2005/supportchat/internal/server/config"
	"github.com/dmitrijs2005/supportchat/internal/server/httpapi"
	"github.com/dmitrijs2005/supportchat/internal/server/notify"
	"github.com/dmitrijs2005/supportchat/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/supportchat/internal/server/services"
)

const mailTimeout = 30 * time.Second

type App struct {
	config        *config.Config
	logger        logging.Logger
	db            *sql.DB
	mailer        *notify.Async
	audit         *services.AuditRecorder
	userService   *services.UserService
	sessionStore  *services.SessionStore
	conversations *services.ConversationService
	tokenService  *auth.TokenService
}

// NewLogger is the process logger: JSON lines on stdout.
func NewLogger() logging.Logger {
	return logging.NewJSONLogger(os.Stdout, slog.LevelInfo)
}

// OpenDB connects to PostgreSQL through the pgx driver and brings the schema
// up to date.
func OpenDB(ctx context.Context, c *config.Config, m repomanager.RepositoryManager) (*sql.DB, error) {
	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	pingCtx, cancel := dbx.WithTimeout(ctx, c.DBTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", dbx.Classify(err))
	}

	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}
	return db, nil
}

// NewUserService builds the account service on its own, for tools that need
// nothing else. Emails go to the log.
func NewUserService(db *sql.DB, c *config.Config, logger logging.Logger) (*services.UserService, *services.AuditRecorder) {
	rm := repomanager.NewPostgresRepositoryManager()
	tokens := auth.NewTokenService([]byte(c.SecretKey), c.SessionValidityDuration)
	audit := services.NewAuditRecorder(db, rm, logger, c.AuditQueueSize, c.DBTimeout)
	sessions := services.NewSessionStore(db, rm, audit, c.DBTimeout, logger)
	mailer := notify.NewSMTPSender(notify.SMTPConfig{AppURL: c.AppURL}, logger)
	return services.NewUserService(db, rm, c, tokens, sessions, mailer, logger), audit
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	rm := repomanager.NewPostgresRepositoryManager()

	db, err := OpenDB(ctx, c, rm)
	if err != nil {
		return nil, err
	}

	sender := notify.NewSMTPSender(notify.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUser,
		Password: c.SMTPPassword,
		AppURL:   c.AppURL,
	}, logger)
	mailer := notify.NewAsync(sender, logger, mailTimeout)

	tokens := auth.NewTokenService([]byte(c.SecretKey), c.SessionValidityDuration)
	audit := services.NewAuditRecorder(db, rm, logger, c.AuditQueueSize, c.DBTimeout)
	sessions := services.NewSessionStore(db, rm, audit, c.DBTimeout, logger)

	return &App{
		config:        c,
		logger:        logger,
		db:            db,
		mailer:        mailer,
		audit:         audit,
		tokenService:  tokens,
		sessionStore:  sessions,
		userService:   services.NewUserService(db, rm, c, tokens, sessions, mailer, logger),
		conversations: services.NewConversationService(db, rm, c, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger,
		app.userService, app.sessionStore, app.conversations, app.tokenService)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until a termination signal or ctx cancellation, then drains
// the audit queue and pending emails and closes the pool.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.audit.Close()
	app.mailer.Wait()
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(context.WithoutCancel(ctx), "App stopped")
}
