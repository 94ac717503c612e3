package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers that resolve on retry.
const (
	errTooManyConnections = 1040
	errServerShutdown     = 1053
	errLockWaitTimeout    = 1205
	errDeadlockFound      = 1213
)

// IsTransient reports whether err is an operational store error that is
// expected to resolve on retry: connectivity loss, lock contention, or a
// timeout. Logic and validation errors are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case errTooManyConnections, errServerShutdown, errLockWaitTimeout, errDeadlockFound:
			return true
		}
		return false
	}

	// Client-side driver failures.
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return false
}
