package store

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"teamhub/apperr"
)

// isUniqueViolation recognises unique-index failures whether or not the
// dialector translated them into gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "sqlstate 23505")
}

// writeError maps a failed write to dup when a unique index rejected it.
func writeError(err error, dup *apperr.Error, msg string) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return dup
	}
	return apperr.Internal(err, msg)
}

// readError maps a failed single-row read.
func readError(err error, notFound, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(notFound)
	}
	return apperr.Internal(err, msg)
}

func likePattern(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
