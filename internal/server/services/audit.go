package services

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/dmitrijs2005/supportchat/internal/dbx"
	"github.com/dmitrijs2005/supportchat/internal/logging"
	"github.com/dmitrijs2005/supportchat/internal/server/models"
	"github.com/dmitrijs2005/supportchat/internal/server/repositories/repomanager"
)

type auditItem struct {
	ctx     context.Context
	attempt *models.LoginAttempt
}

// AuditRecorder writes login attempts on a background goroutine. Record
// never blocks and never fails: a full queue or a failed write is logged and
// the attempt is lost.
type AuditRecorder struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	logger       logging.Logger
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
	queue  chan auditItem
	done   chan struct{}
}

// NewAuditRecorder starts the writer goroutine. Call Close to drain it.
func NewAuditRecorder(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger, queueSize int, writeTimeout time.Duration) *AuditRecorder {
	if queueSize <= 0 {
		queueSize = 1
	}
	r := &AuditRecorder{
		db:           db,
		repomanager:  m,
		logger:       logger.With("module", "audit"),
		writeTimeout: writeTimeout,
		queue:        make(chan auditItem, queueSize),
		done:         make(chan struct{}),
	}
	go r.run()
	return r
}

// Record enqueues a. The write runs with ctx's values but not its
// cancellation, so it outlives the request that produced it.
func (r *AuditRecorder) Record(ctx context.Context, a *models.LoginAttempt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		r.logger.Warn(ctx, "audit recorder closed, login attempt dropped", "attempt_id", a.ID)
		return
	}

	select {
	case r.queue <- auditItem{ctx: context.WithoutCancel(ctx), attempt: a}:
	default:
		r.logger.Warn(ctx, "audit queue full, login attempt dropped", "attempt_id", a.ID)
	}
}

// Close stops accepting attempts and waits until queued ones are written.
// It is safe to call more than once.
func (r *AuditRecorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	<-r.done
}

func (r *AuditRecorder) run() {
	defer close(r.done)
	for item := range r.queue {
		r.write(item)
	}
}

func (r *AuditRecorder) write(item auditItem) {
	ctx, cancel := dbx.WithTimeout(item.ctx, r.writeTimeout)
	defer cancel()

	if err := r.repomanager.LoginAttempts(r.db).Create(ctx, item.attempt); err != nil {
		r.logger.Error(ctx, "failed to record login attempt", "attempt_id", item.attempt.ID, "error", err)
	}
}
