package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrPreferencesNotFound = errors.New("preferences not found")
	// ErrUniqueViolation is returned when a write collides with a unique
	// constraint (email, provider subject, preferences owner).
	ErrUniqueViolation = errors.New("unique constraint violation")
	// ErrLinkConflict means the user changed after it was read: it is gone,
	// deactivated, or already linked to a subject.
	ErrLinkConflict = errors.New("user no longer linkable")
)

// pgUniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err comes from a unique constraint
// (works for both SQLite and PostgreSQL).
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUniqueViolation) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") || strings.Contains(errStr, "duplicate key value")
}

// translate maps driver errors onto repository sentinels.
func translate(err error) error {
	if IsUniqueViolation(err) && !errors.Is(err, ErrUniqueViolation) {
		return errors.Join(ErrUniqueViolation, err)
	}
	return err
}
