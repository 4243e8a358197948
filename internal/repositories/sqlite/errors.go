package sqlite

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/guille1999utp/bemaster-part-2/internal/repositories"
)

var errCorruptRow = errors.New("corrupt row")

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// classify maps constraint failures onto the repository sentinels, or returns nil.
func classify(err error) error {
	switch {
	case isUniqueViolation(err):
		return repositories.ErrConflict
	case isForeignKeyViolation(err):
		return repositories.ErrNotFound
	}
	return nil
}
