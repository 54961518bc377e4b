// Package notify delivers account emails (address verification and password
// reset). Delivery is outside the request path: callers go through Async,
// which never blocks on the mail server and only logs failures.
package notify

import "context"

// Notifier sends account emails.
type Notifier interface {
	SendVerificationEmail(ctx context.Context, email, token string) error
	SendPasswordResetEmail(ctx context.Context, email, token string) error
}
