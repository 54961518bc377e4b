package notify

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/supportchat/internal/logging"
)

// Async is a fire-and-forget Notifier. Each call returns immediately and
// the underlying send runs on its own goroutine with a context detached from
// the caller's; errors are logged.
type Async struct {
	next    Notifier
	logger  logging.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsync(next Notifier, logger logging.Logger, timeout time.Duration) *Async {
	return &Async{next: next, logger: logger.With("module", "notify_async"), timeout: timeout}
}

func (a *Async) SendVerificationEmail(ctx context.Context, email, token string) error {
	a.dispatch(ctx, "verification", email, func(ctx context.Context) error {
		return a.next.SendVerificationEmail(ctx, email, token)
	})
	return nil
}

func (a *Async) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	a.dispatch(ctx, "password_reset", email, func(ctx context.Context) error {
		return a.next.SendPasswordResetEmail(ctx, email, token)
	})
	return nil
}

// Wait blocks until every dispatched send has finished.
func (a *Async) Wait() {
	a.wg.Wait()
}

func (a *Async) dispatch(parent context.Context, kind, email string, fn func(context.Context) error) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx := context.WithoutCancel(parent)
		if a.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, a.timeout)
			defer cancel()
		}
		if err := fn(ctx); err != nil {
			a.logger.Error(ctx, "email delivery failed", "kind", kind, "to", email, "error", err)
		}
	}()
}
