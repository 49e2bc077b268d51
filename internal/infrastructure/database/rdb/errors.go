package rdb

import (
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/pannpers/go-apperr/apperr"
	"github.com/pannpers/go-apperr/apperr/codes"
)

// toAppErr converts a database error into a structured application error.
//
// modernc.org/sqlite does not expose a typed error hierarchy as rich as
// pgx's *pgconn.PgError; its errors are plain fmt-formatted strings from
// SQLite's own diagnostic text, so the mapping below matches on message
// content rather than a typed error, same spirit as the teacher's
// PostgreSQL-code switch in its own errors.go but adapted to what this
// driver actually surfaces.
func toAppErr(err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return apperr.Wrap(err, codes.NotFound, msg, attrs...)
	}

	text := err.Error()
	switch {
	case strings.Contains(text, "UNIQUE constraint failed"):
		return apperr.Wrap(err, codes.AlreadyExists, msg, attrs...)
	case strings.Contains(text, "FOREIGN KEY constraint failed"):
		return apperr.Wrap(err, codes.FailedPrecondition, msg, attrs...)
	case strings.Contains(text, "NOT NULL constraint failed"):
		return apperr.Wrap(err, codes.InvalidArgument, msg, attrs...)
	case strings.Contains(text, "CHECK constraint failed"):
		return apperr.Wrap(err, codes.InvalidArgument, msg, attrs...)
	case strings.Contains(text, "database is locked"), strings.Contains(text, "SQLITE_BUSY"):
		return apperr.Wrap(err, codes.Unavailable, msg, attrs...)
	}

	return apperr.Wrap(err, codes.Internal, msg, attrs...)
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// apperrAlreadyExists builds an AlreadyExists error for a field-level
// conflict detected in Go code rather than surfaced by the driver, e.g. an
// alias held by a different user.
func apperrAlreadyExists(field, value string) error {
	return apperr.New(codes.AlreadyExists, field+" already taken", slog.String(field, value))
}
