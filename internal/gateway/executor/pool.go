// Copyright (c) 2026 PgGate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package executor

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/pggate/internal/platform/dberr"
)

// PoolExecutor is the stateless [Executor]: every Execute call acquires one
// connection from the shared pool and returns it when the statement finishes.
type PoolExecutor struct {
	pool *pgxpool.Pool
}

// NewPoolExecutor wraps an established pgx pool.
func NewPoolExecutor(pool *pgxpool.Pool) *PoolExecutor {
	return &PoolExecutor{pool: pool}
}

// Execute acquires a connection, runs the statement, and releases the
// connection back to the pool regardless of outcome.
func (executor *PoolExecutor) Execute(ctx context.Context, sql string, args []any, opts Options) (*Result, error) {
	conn, err := executor.pool.Acquire(ctx)
	if err != nil {
		return nil, dberr.Wrap(err)
	}
	defer conn.Release()

	return run(ctx, conn.Conn(), sql, args, opts)
}

// DeriveSession checks out a fresh connection without releasing it and
// returns a [SessionExecutor] pinned to it. The caller owns the session's
// lifecycle from this point on.
func (executor *PoolExecutor) DeriveSession(ctx context.Context) (Executor, error) {
	conn, err := executor.pool.Acquire(ctx)
	if err != nil {
		return nil, dberr.Wrap(err)
	}
	return &SessionExecutor{conn: conn}, nil
}

// Close drains and terminates the pool. The destroy flag is meaningless at
// pool scope and is ignored.
func (executor *PoolExecutor) Close(ctx context.Context, destroy bool) error {
	executor.pool.Close()
	return nil
}
