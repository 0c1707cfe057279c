// Copyright (c) 2026 PgGate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package executor provides the uniform query capability that the rest of the
gateway runs SQL through.

Two concrete implementations exist behind the [Executor] interface:

  - [PoolExecutor]: stateless. Each call acquires a connection from the shared
    pgx pool, runs the statement, and releases the connection.
  - [SessionExecutor]: stateful. All calls run on one pinned connection for
    the lifetime of a transaction; on close the connection is either returned
    to the pool or physically destroyed.

Higher layers (handlers, the session registry) never see the distinction —
they hold an Executor and call Execute.
*/
package executor

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/pggate/internal/platform/dberr"
)

// Options carries per-statement execution options.
type Options struct {
	// TimeoutMS, when positive, is applied server-side via
	// SET statement_timeout before the statement runs.
	TimeoutMS int `json:"timeout_ms"`
}

// Field describes one result column.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Result is the uniform outcome of one executed statement.
type Result struct {
	// Command is the leading verb of the PostgreSQL command tag
	// (SELECT, INSERT, UPDATE, CREATE, …).
	Command string `json:"command"`
	// RowCount is the number of rows returned or affected.
	RowCount int64 `json:"row_count"`
	// Fields describes the result columns, in order. Empty for statements
	// that return no rows.
	Fields []Field `json:"fields"`
	// Rows holds the result rows as column-name keyed maps.
	Rows []map[string]any `json:"rows"`
}

// Executor is the capability to run SQL against PostgreSQL.
//
// Implementations are safe for concurrent use to the extent the underlying
// connection mode allows: the pool executor is fully concurrent; concurrent
// calls on one session executor serialize on its single connection.
type Executor interface {
	// Execute runs one statement with positionally bound parameters.
	Execute(ctx context.Context, sql string, args []any, opts Options) (*Result, error)

	// DeriveSession returns an executor pinned to a single connection.
	// On the pool executor this checks out a fresh connection; on a session
	// executor it returns the receiver unchanged.
	DeriveSession(ctx context.Context) (Executor, error)

	// Close releases the executor's resources. For a session executor,
	// destroy selects between returning the connection to the pool (false)
	// and physically terminating it (true). Session teardown paths must
	// destroy: a connection that held a transaction may carry session-local
	// state that must never leak into the shared pool.
	Close(ctx context.Context, destroy bool) error
}

// statementTimeoutResetWindow bounds the best-effort statement_timeout reset
// after a timed statement; the primary result must not wait on it for long.
const statementTimeoutResetWindow = 2 * time.Second

// run executes one statement on an already-pinned pgx connection, applying
// and clearing statement_timeout around it when requested.
func run(ctx context.Context, conn *pgx.Conn, sql string, args []any, opts Options) (*Result, error) {
	if opts.TimeoutMS > 0 {
		// statement_timeout takes an integer millisecond value; no user
		// input is interpolated here.
		if _, err := conn.Exec(ctx, "SET statement_timeout = "+strconv.Itoa(opts.TimeoutMS)); err != nil {
			return nil, dberr.Wrap(err)
		}
		defer func() {
			// Swallow reset errors: the connection may already be dead, and
			// the primary statement's error must not be masked. A detached
			// context keeps the reset alive when ctx has been canceled.
			resetCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statementTimeoutResetWindow)
			defer cancel()
			_, _ = conn.Exec(resetCtx, "SET statement_timeout = 0")
		}()
	}

	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, dberr.Wrap(err)
	}
	defer rows.Close()

	descriptions := rows.FieldDescriptions()
	fields := make([]Field, len(descriptions))
	for i, description := range descriptions {
		fields[i] = Field{
			Name: description.Name,
			Type: typeName(conn, description.DataTypeOID),
		}
	}

	out := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, dberr.Wrap(err)
		}
		row := make(map[string]any, len(descriptions))
		for i, description := range descriptions {
			row[description.Name] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err)
	}

	tag := rows.CommandTag()
	return &Result{
		Command:  commandVerb(tag.String()),
		RowCount: tag.RowsAffected(),
		Fields:   fields,
		Rows:     out,
	}, nil
}

// typeName resolves a data type OID through the connection's type map.
func typeName(conn *pgx.Conn, oid uint32) string {
	if dataType, ok := conn.TypeMap().TypeForOID(oid); ok {
		return dataType.Name
	}
	return "oid(" + strconv.FormatUint(uint64(oid), 10) + ")"
}

// normalizeValue converts driver-specific value representations into
// JSON-friendly Go values.
func normalizeValue(value any) any {
	switch v := value.(type) {
	case [16]byte:
		// pgx surfaces uuid columns as raw byte arrays.
		return uuid.UUID(v).String()
	default:
		return value
	}
}

// commandVerb extracts the leading verb from a command tag ("INSERT 0 1" → "INSERT").
func commandVerb(tag string) string {
	if i := strings.IndexByte(tag, ' '); i > 0 {
		return tag[:i]
	}
	return tag
}
