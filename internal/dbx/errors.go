package dbx

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/supportchat/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes we react to.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeAdminShutdown        = "57P01"
	classConnectionException = "08"
)

// Classify maps a driver error onto the common taxonomy while keeping the
// original error in the chain:
//
//	sql.ErrNoRows              -> common.ErrorNotFound
//	unique violation           -> common.ErrConflict
//	connection loss / timeouts -> common.ErrTransient
//
// Anything else is wrapped as "db error". Classify(nil) is nil.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrConflict) || errors.Is(err, common.ErrTransient) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", common.ErrorNotFound, err)
	}
	if IsUniqueViolation(err) {
		return fmt.Errorf("%w: %w", common.ErrConflict, err)
	}
	if IsTransient(err) {
		return fmt.Errorf("%w: %w", common.ErrTransient, err)
	}
	return fmt.Errorf("db error: %w", err)
}

// IsUniqueViolation reports whether err is a Postgres unique-key violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

// IsTransient reports whether err means the store could not be reached or
// gave up, so the call may be retried.
func IsTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeAdminShutdown:
			return true
		}
		return strings.HasPrefix(pgErr.Code, classConnectionException)
	}
	return false
}
