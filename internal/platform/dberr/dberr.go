// Copyright (c) 2026 PgGate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// the gateway's error taxonomy.
package dberr

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/pggate/internal/platform/apperr"
)

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
//
// PostgreSQL errors are surfaced essentially verbatim (DATABASE_ERROR) — the
// calling agent needs the server message to repair its SQL. Everything else
// (connection teardown races, driver bugs) becomes an opaque INTERNAL_ERROR.
func Wrap(err error) error {
	if err == nil {
		return nil
	}

	// Already classified upstream; pass through unmodified.
	if apperr.IsAppError(err) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return apperr.Database(pgErr, pgErr.Code)
	}

	// Context expiry on a statement means the server-side statement_timeout
	// or the request deadline fired; still caller-actionable.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperr.Database(err, pgerrcode.QueryCanceled)
	}

	return apperr.Internal(err)
}

// IsUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation. Used by tests asserting batch atomicity.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
