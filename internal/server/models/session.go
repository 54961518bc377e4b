package models

import "time"

// Session is the record of one successful login. Rows are append-only.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}

// LoginAttempt is an audit row for a login against a known user.
type LoginAttempt struct {
	ID            string
	UserID        *string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason *string
	CreatedAt     time.Time
}
