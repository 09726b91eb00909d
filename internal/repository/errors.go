// Package repository holds the storage implementations behind the booking
// core and the catalog: MySQL repositories and an in-memory store with the
// same semantics.  Errors returned from here are either booking errors
// (not found, conflict) or wrapped driver errors.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/movie-ticketing/internal/booking"
)

// MySQL server error numbers the repositories react to.
const (
	mysqlErrDupEntry        = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
	mysqlErrNoReferencedRow = 1452
)

// ErrConflict is returned when a write collides with an existing unique
// row, e.g. a seat linked to a second booking.
var ErrConflict = errors.New("conflict")

// classify maps driver errors onto the errors callers branch on.  Deadlocks
// and lock wait timeouts become booking.ErrLockConflict so the booking
// manager can retry; duplicate keys become ErrConflict.  Everything else is
// wrapped with op for context.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var be *booking.Error
	if errors.As(err, &be) {
		return err
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlErrDeadlock, mysqlErrLockWaitTimeout:
			return fmt.Errorf("%s: %w: %v", op, booking.ErrLockConflict, err)
		case mysqlErrDupEntry:
			return fmt.Errorf("%s: %w: %v", op, ErrConflict, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isForeignKeyMiss reports whether err is a missing referenced row.
func isForeignKeyMiss(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrNoReferencedRow
}
