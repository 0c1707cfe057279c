// Copyright (c) 2026 PgGate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package handler

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/taibuivan/pggate/internal/gateway/executor"
	"github.com/taibuivan/pggate/internal/gateway/sanitize"
	"github.com/taibuivan/pggate/internal/platform/apperr"
	"github.com/taibuivan/pggate/internal/platform/validate"
)

/*
# Schema Handlers

Catalog introspection and DDL. Introspection runs parameterized queries
against information_schema and pg_catalog. DDL is assembled from sanitized,
quoted identifiers plus a caller-supplied definition body; identifier
sanitization is the only defense applied to DDL text.
*/

const defaultListLimit = 100

type schemaListParams struct {
	SessionID string `json:"session_id"`
	Target    string `json:"target"`
	Schema    string `json:"schema"`
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
}

// listQueries maps a list target to its catalog query. Each query takes the
// schema pattern as $1, limit as $2 and offset as $3.
var listQueries = map[string]string{
	"schema": `
		SELECT schema_name, schema_owner
		FROM information_schema.schemata
		WHERE schema_name NOT IN ('pg_catalog', 'information_schema')
		  AND schema_name NOT LIKE 'pg_toast%'
		  AND ($1 = '' OR schema_name = $1)
		ORDER BY schema_name
		LIMIT $2 OFFSET $3`,
	"table": `
		SELECT table_schema, table_name, table_type
		FROM information_schema.tables
		WHERE table_type IN ('BASE TABLE', 'FOREIGN')
		  AND table_schema NOT IN ('pg_catalog', 'information_schema')
		  AND ($1 = '' OR table_schema = $1)
		ORDER BY table_schema, table_name
		LIMIT $2 OFFSET $3`,
	"view": `
		SELECT schemaname AS table_schema, viewname AS table_name, 'VIEW' AS view_kind
		FROM pg_catalog.pg_views
		WHERE schemaname NOT IN ('pg_catalog', 'information_schema')
		  AND ($1 = '' OR schemaname = $1)
		UNION ALL
		SELECT schemaname, matviewname, 'MATERIALIZED VIEW'
		FROM pg_catalog.pg_matviews
		WHERE schemaname NOT IN ('pg_catalog', 'information_schema')
		  AND ($1 = '' OR schemaname = $1)
		ORDER BY 1, 2
		LIMIT $2 OFFSET $3`,
	"function": `
		SELECT n.nspname AS schema, p.proname AS name,
		       pg_catalog.pg_get_function_result(p.oid) AS result_type,
		       pg_catalog.pg_get_function_arguments(p.oid) AS arguments
		FROM pg_catalog.pg_proc p
		JOIN pg_catalog.pg_namespace n ON n.oid = p.pronamespace
		WHERE n.nspname NOT IN ('pg_catalog', 'information_schema')
		  AND ($1 = '' OR n.nspname = $1)
		ORDER BY n.nspname, p.proname
		LIMIT $2 OFFSET $3`,
	"trigger": `
		SELECT trigger_schema, trigger_name, event_manipulation,
		       event_object_schema, event_object_table, action_timing
		FROM information_schema.triggers
		WHERE ($1 = '' OR trigger_schema = $1)
		ORDER BY trigger_schema, trigger_name
		LIMIT $2 OFFSET $3`,
	"sequence": `
		SELECT sequence_schema, sequence_name, data_type, start_value, increment
		FROM information_schema.sequences
		WHERE ($1 = '' OR sequence_schema = $1)
		ORDER BY sequence_schema, sequence_name
		LIMIT $2 OFFSET $3`,
	"constraint": `
		SELECT constraint_schema, constraint_name, table_name, constraint_type
		FROM information_schema.table_constraints
		WHERE constraint_schema NOT IN ('pg_catalog', 'information_schema')
		  AND ($1 = '' OR constraint_schema = $1)
		ORDER BY constraint_schema, table_name, constraint_name
		LIMIT $2 OFFSET $3`,
}

func (h *Set) schemaList(ctx context.Context, raw json.RawMessage) (any, error) {
	request, err := decode[schemaListParams](raw)
	if err != nil {
		return nil, err
	}
	if request.Limit == 0 {
		request.Limit = defaultListLimit
	}
	var v validate.Validator
	if err := v.
		Required("target", request.Target).
		Range("limit", request.Limit, 1, 1000).
		Custom("offset", request.Offset < 0, "Must not be negative").
		Err(); err != nil {
		return nil, err
	}

	query, ok := listQueries[request.Target]
	if !ok {
		return nil, apperr.NotImplemented("schema.list target " + request.Target)
	}

	exec, err := h.resolve(request.SessionID)
	if err != nil {
		return nil, err
	}
	return exec.Execute(ctx, query,
		[]any{request.Schema, request.Limit, request.Offset}, executor.Options{})
}

type schemaDescribeParams struct {
	SessionID string `json:"session_id"`
	Target    string `json:"target"`
	Schema    string `json:"schema"`
	Name      string `json:"name"`
}

const describeColumnsQuery = `
	SELECT column_name, ordinal_position, data_type, udt_name,
	       is_nullable, column_default,
	       character_maximum_length, numeric_precision, numeric_scale
	FROM information_schema.columns
	WHERE table_schema = $1 AND table_name = $2
	ORDER BY ordinal_position`

const describeIndexesQuery = `
	SELECT indexname, indexdef
	FROM pg_catalog.pg_indexes
	WHERE schemaname = $1 AND tablename = $2
	ORDER BY indexname`

// schemaDescribe reports the column and index layout of one table. Other
// describe targets are not covered yet; they fail explicitly instead of
// falling through to the table path.
func (h *Set) schemaDescribe(ctx context.Context, raw json.RawMessage) (any, error) {
	request, err := decode[schemaDescribeParams](raw)
	if err != nil {
		return nil, err
	}
	if request.Target != "" && request.Target != "table" {
		return nil, apperr.NotImplemented("schema.describe target " + request.Target)
	}
	if request.Schema == "" {
		request.Schema = "public"
	}
	var v validate.Validator
	if err := v.Required("name", request.Name).Err(); err != nil {
		return nil, err
	}

	exec, err := h.resolve(request.SessionID)
	if err != nil {
		return nil, err
	}

	columns, err := exec.Execute(ctx, describeColumnsQuery,
		[]any{request.Schema, request.Name}, executor.Options{})
	if err != nil {
		return nil, err
	}
	if columns.RowCount == 0 {
		return nil, apperr.ValidationError(
			"relation " + request.Schema + "." + request.Name + " does not exist or has no columns")
	}
	indexes, err := exec.Execute(ctx, describeIndexesQuery,
		[]any{request.Schema, request.Name}, executor.Options{})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"schema":  request.Schema,
		"name":    request.Name,
		"columns": columns.Rows,
		"indexes": indexes.Rows,
	}, nil
}

type schemaDDLParams struct {
	SessionID   string `json:"session_id"`
	Autocommit  bool   `json:"autocommit"`
	Target      string `json:"target"`
	Schema      string `json:"schema"`
	Name        string `json:"name"`
	Definition  string `json:"definition"`
	IfExists    bool   `json:"if_exists"`
	IfNotExists bool   `json:"if_not_exists"`
	Cascade     bool   `json:"cascade"`
}

// ddlKeywords maps a DDL target to its SQL object keyword.
var ddlKeywords = map[string]string{
	"table":    "TABLE",
	"view":     "VIEW",
	"schema":   "SCHEMA",
	"sequence": "SEQUENCE",
	"index":    "INDEX",
}

// ddlName produces the quoted object name. SCHEMA and INDEX objects take a
// bare identifier; the rest may be schema-qualified.
func ddlName(target string, request schemaDDLParams) (string, error) {
	if target == "schema" || target == "index" {
		return sanitize.Identifier(request.Name)
	}
	return sanitize.Qualified(request.Schema, request.Name)
}

func (h *Set) schemaCreate(ctx context.Context, raw json.RawMessage) (any, error) {
	return h.runDDL(ctx, raw, "create")
}

func (h *Set) schemaAlter(ctx context.Context, raw json.RawMessage) (any, error) {
	return h.runDDL(ctx, raw, "alter")
}

func (h *Set) schemaDrop(ctx context.Context, raw json.RawMessage) (any, error) {
	return h.runDDL(ctx, raw, "drop")
}

// runDDL assembles and executes one CREATE/ALTER/DROP statement.
//
// The identifier goes through the sanitizer; the definition body is passed
// through verbatim. The caller has already proven write intent at the
// dispatch boundary, and DDL bodies (column lists, view queries) are not
// expressible as bound parameters.
func (h *Set) runDDL(ctx context.Context, raw json.RawMessage, verb string) (any, error) {
	request, err := decode[schemaDDLParams](raw)
	if err != nil {
		return nil, err
	}
	var v validate.Validator
	v.Required("target", request.Target).Required("name", request.Name)
	if verb != "drop" {
		v.Required("definition", request.Definition)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	keyword, ok := ddlKeywords[request.Target]
	if !ok {
		return nil, apperr.NotImplemented("schema." + verb + " target " + request.Target)
	}
	name, err := ddlName(request.Target, request)
	if err != nil {
		return nil, err
	}

	var sql string
	switch verb {
	case "create":
		sql = "CREATE " + keyword + " "
		if request.IfNotExists {
			sql += "IF NOT EXISTS "
		}
		sql += name
		if definition := strings.TrimSpace(request.Definition); definition != "" {
			sql += " " + definition
		}
	case "alter":
		sql = "ALTER " + keyword + " " + name + " " + strings.TrimSpace(request.Definition)
	case "drop":
		sql = "DROP " + keyword + " "
		if request.IfExists {
			sql += "IF EXISTS "
		}
		sql += name
		if request.Cascade {
			sql += " CASCADE"
		}
	}

	exec, err := h.resolve(request.SessionID)
	if err != nil {
		return nil, err
	}
	result, err := exec.Execute(ctx, sql, nil, executor.Options{})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"command":   result.Command,
		"statement": sql,
	}, nil
}
