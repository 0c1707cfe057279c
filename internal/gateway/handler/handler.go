// Copyright (c) 2026 PgGate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package handler implements the per-action handlers behind the dispatcher.

Handlers translate structured parameters into executor calls and produce
structured results. They borrow an executor for the duration of one call —
through the resolver for session-aware actions — and never retain a
connection reference across calls.

Grouping follows the tool taxonomy:

  - query: read / write / explain / transaction (stateless batch)
  - schema: list / describe / create / alter / drop
  - transaction: begin / commit / rollback / savepoint / release / list
  - admin: vacuum / analyze / reindex / terminate / settings.get / settings.set
  - monitor: activity / locks / table_sizes / connections / version
*/
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"github.com/taibuivan/pggate/internal/gateway/dispatch"
	"github.com/taibuivan/pggate/internal/gateway/executor"
	"github.com/taibuivan/pggate/internal/gateway/session"
	"github.com/taibuivan/pggate/internal/platform/constants"
	"github.com/taibuivan/pggate/internal/platform/validate"
)

// Set holds the dependencies shared by every handler: the pool executor for
// stateless work and the session registry for transactional work.
type Set struct {
	pool     executor.Executor
	sessions *session.Manager
	log      *slog.Logger
}

// NewSet wires the handler set. pool must be the pool executor; sessions may
// be shared with the dispatcher that echoes session metadata.
func NewSet(pool executor.Executor, sessions *session.Manager, log *slog.Logger) *Set {
	return &Set{pool: pool, sessions: sessions, log: log}
}

// Register installs every handler into the dispatcher's static table, with
// its safety marker. This is the one place the (tool, action) surface is
// enumerated.
func (h *Set) Register(d *dispatch.Dispatcher) {
	// query
	d.Register("query", "read", dispatch.Registration{
		Marker: dispatch.MarkerRead, Handle: h.queryRead,
	})
	d.Register("query", "write", dispatch.Registration{
		Marker: dispatch.MarkerWrite, RequiresWriteIntent: true, Handle: h.queryWrite,
	})
	d.Register("query", "explain", dispatch.Registration{
		Marker: dispatch.MarkerRead, Handle: h.queryExplain,
	})
	// The batch brings its own transaction; see dispatch.Registration.
	d.Register("query", "transaction", dispatch.Registration{
		Marker: dispatch.MarkerWrite, Handle: h.queryTransaction,
	})

	// schema
	d.Register("schema", "list", dispatch.Registration{
		Marker: dispatch.MarkerRead, Handle: h.schemaList,
	})
	d.Register("schema", "describe", dispatch.Registration{
		Marker: dispatch.MarkerRead, Handle: h.schemaDescribe,
	})
	d.Register("schema", "create", dispatch.Registration{
		Marker: dispatch.MarkerWrite, RequiresWriteIntent: true, Handle: h.schemaCreate,
	})
	d.Register("schema", "alter", dispatch.Registration{
		Marker: dispatch.MarkerWrite, RequiresWriteIntent: true, Handle: h.schemaAlter,
	})
	d.Register("schema", "drop", dispatch.Registration{
		Marker: dispatch.MarkerWrite, RequiresWriteIntent: true, Handle: h.schemaDrop,
	})

	// transaction
	d.Register("transaction", "begin", dispatch.Registration{
		Marker: dispatch.MarkerControl, Handle: h.txBegin,
	})
	d.Register("transaction", "commit", dispatch.Registration{
		Marker: dispatch.MarkerControl, Handle: h.txCommit,
	})
	d.Register("transaction", "rollback", dispatch.Registration{
		Marker: dispatch.MarkerControl, Handle: h.txRollback,
	})
	d.Register("transaction", "savepoint", dispatch.Registration{
		Marker: dispatch.MarkerControl, Handle: h.txSavepoint,
	})
	d.Register("transaction", "release", dispatch.Registration{
		Marker: dispatch.MarkerControl, Handle: h.txRelease,
	})
	d.Register("transaction", "list", dispatch.Registration{
		Marker: dispatch.MarkerControl, Handle: h.txList,
	})

	// admin
	d.Register("admin", "vacuum", dispatch.Registration{
		Marker: dispatch.MarkerRead, Handle: h.adminVacuum,
	})
	d.Register("admin", "analyze", dispatch.Registration{
		Marker: dispatch.MarkerRead, Handle: h.adminAnalyze,
	})
	d.Register("admin", "reindex", dispatch.Registration{
		Marker: dispatch.MarkerRead, Handle: h.adminReindex,
	})
	d.Register("admin", "terminate", dispatch.Registration{
		Marker: dispatch.MarkerRead, Handle: h.adminTerminate,
	})
	d.Register("admin", "settings.get", dispatch.Registration{
		Marker: dispatch.MarkerRead, Handle: h.adminSettingsGet,
	})
	d.Register("admin", "settings.set", dispatch.Registration{
		Marker: dispatch.MarkerWrite, RequiresWriteIntent: true, Handle: h.adminSettingsSet,
	})

	// monitor
	d.Register("monitor", "activity", dispatch.Registration{
		Marker: dispatch.MarkerRead, Handle: h.monitorActivity,
	})
	d.Register("monitor", "locks", dispatch.Registration{
		Marker: dispatch.MarkerRead, Handle: h.monitorLocks,
	})
	d.Register("monitor", "table_sizes", dispatch.Registration{
		Marker: dispatch.MarkerRead, Handle: h.monitorTableSizes,
	})
	d.Register("monitor", "connections", dispatch.Registration{
		Marker: dispatch.MarkerRead, Handle: h.monitorConnections,
	})
	d.Register("monitor", "version", dispatch.Registration{
		Marker: dispatch.MarkerRead, Handle: h.monitorVersion,
	})
}

// resolve returns the executor for an optional session ID: the shared pool
// executor when absent, the session's pinned executor otherwise. This is the
// single point where the pool/session distinction is decided.
func (h *Set) resolve(sessionID string) (executor.Executor, error) {
	if sessionID == "" {
		return h.pool, nil
	}
	return h.sessions.Get(sessionID)
}

// cleanupContext derives a short-lived context for rollback/teardown work
// that must proceed even when the request context is already canceled.
func cleanupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), constants.SessionCleanupTimeout)
}

// decode unmarshals raw params into the handler's declared shape. An empty
// payload decodes to the zero value; required-field checks follow via the
// validate chain.
func decode[T any](raw json.RawMessage) (T, error) {
	var params T
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return params, nil
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return params, validate.ErrInvalidJSON
	}
	return params, nil
}
