// Copyright (c) 2026 PgGate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package executor

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/pggate/internal/platform/apperr"
)

// SessionExecutor is the stateful [Executor]: it owns exactly one checked-out
// connection, and every statement runs on it. Within one session, statements
// execute strictly in the order they are issued.
type SessionExecutor struct {
	conn *pgxpool.Conn
}

// Execute runs one statement on the pinned connection. The connection is
// never returned to the pool between calls.
func (executor *SessionExecutor) Execute(ctx context.Context, sql string, args []any, opts Options) (*Result, error) {
	if executor.conn == nil {
		return nil, apperr.Internal(errors.New("session executor used after close"))
	}
	return run(ctx, executor.conn.Conn(), sql, args, opts)
}

// DeriveSession returns the receiver: a session executor is already pinned,
// so deriving is idempotent.
func (executor *SessionExecutor) DeriveSession(ctx context.Context) (Executor, error) {
	return executor, nil
}

// Close releases the pinned connection. With destroy, the connection is
// hijacked out of the pool and physically terminated — required on every
// session-end path (commit, rollback, TTL expiry, error), because a
// connection that held a transaction may carry residual session-local
// settings, temporary tables, or prepared statements. Without destroy the
// connection goes back to the pool; that path is reserved for transient
// connections that never held client state.
//
// Close is idempotent; second and later calls are no-ops.
func (executor *SessionExecutor) Close(ctx context.Context, destroy bool) error {
	if executor.conn == nil {
		return nil
	}
	conn := executor.conn
	executor.conn = nil

	if destroy {
		raw := conn.Hijack()
		return raw.Close(ctx)
	}

	conn.Release()
	return nil
}
