package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/progression-backend/internal/domain/aggregates"
)

// MapError maps infrastructure failures into domain error codes. Anything the
// caller could succeed at by retrying later becomes data_unavailable.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domainagg.Wrap(domainagg.CodeNotFound, op, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domainagg.Wrap(domainagg.CodeConflict, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domainagg.Wrap(domainagg.CodeDataUnavailable, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return domainagg.Wrap(domainagg.CodeConflict, op, err) // unique_violation
		case "40001", "40P01", "55P03", "57P01", "08000", "08003", "08006":
			return domainagg.Wrap(domainagg.CodeDataUnavailable, op, err)
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "duplicate key"), strings.Contains(msg, "unique constraint failed"):
		return domainagg.Wrap(domainagg.CodeConflict, op, err)
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "temporar"):
		return domainagg.Wrap(domainagg.CodeDataUnavailable, op, err)
	default:
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
}

// Unavailable tags a collaborator failure as retryable regardless of its
// concrete shape. Read paths use it so callers never see "met" or "unmet"
// when the data could not be read at all.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	mapped := MapError(op, err)
	switch domainagg.CodeOf(mapped) {
	case domainagg.CodeNotFound, domainagg.CodeUserNotFound, domainagg.CodeDataUnavailable:
		return mapped
	}
	return domainagg.Wrap(domainagg.CodeDataUnavailable, op, err)
}

// UserLookup tags a missing user row as user_not_found so it never reads as
// an unknown skill. Other errors pass through untouched.
func UserLookup(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainagg.Wrap(domainagg.CodeUserNotFound, op, err)
	}
	return err
}
