// Copyright (c) 2026 PgGate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package handler

import (
	"context"
	"encoding/json"

	"github.com/taibuivan/pggate/internal/gateway/executor"
	"github.com/taibuivan/pggate/internal/platform/validate"
)

/*
# Monitor Handlers

Read-only server observability. Every action is a fixed catalog query on the
shared pool; none accept a session_id.
*/

type activityParams struct {
	IncludeIdle bool `json:"include_idle"`
	Limit       int  `json:"limit"`
}

const activityQuery = `
	SELECT pid, usename, datname, state, wait_event_type, wait_event,
	       backend_start, xact_start, query_start, state_change,
	       left(query, 200) AS query
	FROM pg_stat_activity
	WHERE pid <> pg_backend_pid()
	  AND ($1 OR state <> 'idle')
	ORDER BY query_start DESC NULLS LAST
	LIMIT $2`

func (h *Set) monitorActivity(ctx context.Context, raw json.RawMessage) (any, error) {
	request, err := decode[activityParams](raw)
	if err != nil {
		return nil, err
	}
	if request.Limit == 0 {
		request.Limit = defaultListLimit
	}
	var v validate.Validator
	if err := v.Range("limit", request.Limit, 1, 1000).Err(); err != nil {
		return nil, err
	}
	return h.pool.Execute(ctx, activityQuery,
		[]any{request.IncludeIdle, request.Limit}, executor.Options{})
}

const locksQuery = `
	SELECT l.pid, l.locktype, l.mode, l.granted,
	       c.relname, a.usename, a.state,
	       left(a.query, 200) AS query
	FROM pg_locks l
	LEFT JOIN pg_class c ON c.oid = l.relation
	LEFT JOIN pg_stat_activity a ON a.pid = l.pid
	WHERE l.pid <> pg_backend_pid()
	ORDER BY l.granted, l.pid`

func (h *Set) monitorLocks(ctx context.Context, _ json.RawMessage) (any, error) {
	return h.pool.Execute(ctx, locksQuery, nil, executor.Options{})
}

type tableSizesParams struct {
	Schema string `json:"schema"`
	Limit  int    `json:"limit"`
}

const tableSizesQuery = `
	SELECT n.nspname AS schema, c.relname AS table,
	       pg_total_relation_size(c.oid) AS total_bytes,
	       pg_relation_size(c.oid) AS table_bytes,
	       pg_indexes_size(c.oid) AS index_bytes,
	       pg_size_pretty(pg_total_relation_size(c.oid)) AS total_pretty,
	       c.reltuples::bigint AS estimated_rows
	FROM pg_class c
	JOIN pg_namespace n ON n.oid = c.relnamespace
	WHERE c.relkind IN ('r', 'm')
	  AND n.nspname NOT IN ('pg_catalog', 'information_schema')
	  AND ($1 = '' OR n.nspname = $1)
	ORDER BY pg_total_relation_size(c.oid) DESC
	LIMIT $2`

func (h *Set) monitorTableSizes(ctx context.Context, raw json.RawMessage) (any, error) {
	request, err := decode[tableSizesParams](raw)
	if err != nil {
		return nil, err
	}
	if request.Limit == 0 {
		request.Limit = 25
	}
	var v validate.Validator
	if err := v.Range("limit", request.Limit, 1, 1000).Err(); err != nil {
		return nil, err
	}
	return h.pool.Execute(ctx, tableSizesQuery,
		[]any{request.Schema, request.Limit}, executor.Options{})
}

const connectionsQuery = `
	SELECT datname, usename, state, count(*) AS connections
	FROM pg_stat_activity
	GROUP BY datname, usename, state
	ORDER BY connections DESC`

const connectionLimitQuery = `
	SELECT current_setting('max_connections')::int AS max_connections,
	       (SELECT count(*) FROM pg_stat_activity) AS current_connections`

func (h *Set) monitorConnections(ctx context.Context, _ json.RawMessage) (any, error) {
	byState, err := h.pool.Execute(ctx, connectionsQuery, nil, executor.Options{})
	if err != nil {
		return nil, err
	}
	limits, err := h.pool.Execute(ctx, connectionLimitQuery, nil, executor.Options{})
	if err != nil {
		return nil, err
	}
	out := map[string]any{"by_state": byState.Rows}
	if len(limits.Rows) == 1 {
		out["max_connections"] = limits.Rows[0]["max_connections"]
		out["current_connections"] = limits.Rows[0]["current_connections"]
	}
	return out, nil
}

const versionQuery = `
	SELECT version() AS version,
	       current_setting('server_version') AS server_version,
	       current_database() AS database,
	       pg_postmaster_start_time() AS started_at,
	       now() - pg_postmaster_start_time() AS uptime`

func (h *Set) monitorVersion(ctx context.Context, _ json.RawMessage) (any, error) {
	return h.pool.Execute(ctx, versionQuery, nil, executor.Options{})
}
