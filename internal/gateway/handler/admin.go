// Copyright (c) 2026 PgGate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package handler

import (
	"context"
	"encoding/json"

	"github.com/taibuivan/pggate/internal/gateway/executor"
	"github.com/taibuivan/pggate/internal/gateway/sanitize"
	"github.com/taibuivan/pggate/internal/platform/validate"
)

/*
# Admin Handlers

Maintenance operations. VACUUM, ANALYZE and REINDEX run on the shared pool —
VACUUM cannot run inside a transaction block, so these actions never accept a
session_id. settings.set changes a runtime parameter for the whole server and
therefore sits behind the write-intent gate.
*/

type maintenanceParams struct {
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Full   bool   `json:"full"`
}

func (h *Set) adminVacuum(ctx context.Context, raw json.RawMessage) (any, error) {
	request, err := decode[maintenanceParams](raw)
	if err != nil {
		return nil, err
	}
	sql := "VACUUM"
	if request.Full {
		sql += " (FULL, ANALYZE)"
	} else {
		sql += " (ANALYZE)"
	}
	if request.Table != "" {
		name, err := sanitize.Qualified(request.Schema, request.Table)
		if err != nil {
			return nil, err
		}
		sql += " " + name
	}
	return h.pool.Execute(ctx, sql, nil, executor.Options{})
}

func (h *Set) adminAnalyze(ctx context.Context, raw json.RawMessage) (any, error) {
	request, err := decode[maintenanceParams](raw)
	if err != nil {
		return nil, err
	}
	sql := "ANALYZE"
	if request.Table != "" {
		name, err := sanitize.Qualified(request.Schema, request.Table)
		if err != nil {
			return nil, err
		}
		sql += " " + name
	}
	return h.pool.Execute(ctx, sql, nil, executor.Options{})
}

type reindexParams struct {
	Target string `json:"target"`
	Name   string `json:"name"`
}

// adminReindex rebuilds indexes for one named object. Database-wide reindex
// is not offered: every invocation names its target.
func (h *Set) adminReindex(ctx context.Context, raw json.RawMessage) (any, error) {
	request, err := decode[reindexParams](raw)
	if err != nil {
		return nil, err
	}
	var v validate.Validator
	if err := v.
		OneOf("target", request.Target, "table", "index", "schema").
		Required("name", request.Name).
		Err(); err != nil {
		return nil, err
	}

	sql := "REINDEX "
	switch request.Target {
	case "table":
		sql += "TABLE "
	case "index":
		sql += "INDEX "
	case "schema":
		sql += "SCHEMA "
	}
	name, err := sanitize.Identifier(request.Name)
	if err != nil {
		return nil, err
	}
	return h.pool.Execute(ctx, sql+name, nil, executor.Options{})
}

type terminateParams struct {
	PID int `json:"pid"`
}

func (h *Set) adminTerminate(ctx context.Context, raw json.RawMessage) (any, error) {
	request, err := decode[terminateParams](raw)
	if err != nil {
		return nil, err
	}
	var v validate.Validator
	if err := v.Custom("pid", request.PID <= 0, "Must be a positive backend pid").Err(); err != nil {
		return nil, err
	}
	return h.pool.Execute(ctx,
		"SELECT pg_terminate_backend($1) AS terminated",
		[]any{request.PID}, executor.Options{})
}

type settingsGetParams struct {
	Name    string `json:"name"`
	Pattern string `json:"pattern"`
}

func (h *Set) adminSettingsGet(ctx context.Context, raw json.RawMessage) (any, error) {
	request, err := decode[settingsGetParams](raw)
	if err != nil {
		return nil, err
	}
	if request.Name != "" {
		return h.pool.Execute(ctx,
			"SELECT name, setting, unit, category, short_desc, context FROM pg_settings WHERE name = $1",
			[]any{request.Name}, executor.Options{})
	}
	pattern := request.Pattern
	if pattern == "" {
		pattern = "%"
	}
	return h.pool.Execute(ctx,
		"SELECT name, setting, unit, category, short_desc, context FROM pg_settings WHERE name LIKE $1 ORDER BY name",
		[]any{pattern}, executor.Options{})
}

type settingsSetParams struct {
	SessionID  string `json:"session_id"`
	Autocommit bool   `json:"autocommit"`
	Name       string `json:"name"`
	Value      string `json:"value"`
}

// adminSettingsSet applies a runtime setting via set_config. Inside a session
// the change is transaction-local when the transaction later rolls back; on
// the pool it affects only the borrowed connection's backend for the session
// duration PostgreSQL defines.
func (h *Set) adminSettingsSet(ctx context.Context, raw json.RawMessage) (any, error) {
	request, err := decode[settingsSetParams](raw)
	if err != nil {
		return nil, err
	}
	var v validate.Validator
	if err := v.Required("name", request.Name).Err(); err != nil {
		return nil, err
	}

	exec, err := h.resolve(request.SessionID)
	if err != nil {
		return nil, err
	}
	local := request.SessionID != ""
	return exec.Execute(ctx,
		"SELECT set_config($1, $2, $3) AS value",
		[]any{request.Name, request.Value, local}, executor.Options{})
}
