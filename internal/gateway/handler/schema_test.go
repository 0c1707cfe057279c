// Copyright (c) 2026 PgGate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/pggate/internal/platform/apperr"
)

func TestSchemaList_Targets(t *testing.T) {
	for _, target := range []string{"schema", "table", "view", "function", "trigger", "sequence", "constraint"} {
		t.Run(target, func(t *testing.T) {
			env := newTestEnv(t)
			_, err := env.dispatch(t, "schema", "list", `{"target":"`+target+`"}`)
			require.NoError(t, err)
			require.Len(t, env.pool.recorded(), 1)
			// schema pattern, limit, offset
			assert.Equal(t, []any{"", defaultListLimit, 0}, env.pool.argLists[0])
		})
	}
}

func TestSchemaList_UnknownTarget(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.dispatch(t, "schema", "list", `{"target":"tablespace"}`)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "NOT_IMPLEMENTED"))
}

func TestSchemaList_LimitBounds(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.dispatch(t, "schema", "list", `{"target":"table","limit":5000}`)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "INVALID_PARAMETERS"))
}

func TestSchemaDescribe_TargetHandling(t *testing.T) {
	tests := []struct {
		name     string
		params   string
		wantCode string
	}{
		{"implicit_table", `{"name":"users"}`, ""},
		{"explicit_table", `{"target":"table","name":"users"}`, ""},
		{"function_not_implemented", `{"target":"function","name":"foo"}`, "NOT_IMPLEMENTED"},
		{"view_not_implemented", `{"target":"view","name":"v_orders"}`, "NOT_IMPLEMENTED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, err := env.dispatch(t, "schema", "describe", tt.params)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, apperr.IsCode(err, tt.wantCode))
				assert.Empty(t, env.pool.recorded(), "unsupported target must not query the catalog")
				return
			}
			// The fake returns zero rows, so the table path reports a missing
			// relation — proof the catalog lookup actually ran.
			require.Error(t, err)
			assert.True(t, apperr.IsCode(err, "INVALID_PARAMETERS"))
			assert.NotEmpty(t, env.pool.recorded())
		})
	}
}

func TestSchemaDescribe_DefaultsToPublic(t *testing.T) {
	env := newTestEnv(t)
	env.pool.result = nil // canned SELECT result with zero rows

	// Zero columns means the relation does not exist.
	_, err := env.dispatch(t, "schema", "describe", `{"name":"users"}`)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "INVALID_PARAMETERS"))

	require.NotEmpty(t, env.pool.argLists)
	assert.Equal(t, []any{"public", "users"}, env.pool.argLists[0])
}

func TestSchemaDDL_StatementAssembly(t *testing.T) {
	tests := []struct {
		name    string
		action  string
		params  string
		wantSQL string
	}{
		{
			name:    "create_table",
			action:  "create",
			params:  `{"autocommit":true,"target":"table","name":"users","definition":"(id bigint PRIMARY KEY, email text NOT NULL)"}`,
			wantSQL: `CREATE TABLE "users" (id bigint PRIMARY KEY, email text NOT NULL)`,
		},
		{
			name:    "create_table_if_not_exists_qualified",
			action:  "create",
			params:  `{"autocommit":true,"target":"table","schema":"app","name":"users","if_not_exists":true,"definition":"(id bigint)"}`,
			wantSQL: `CREATE TABLE IF NOT EXISTS "app"."users" (id bigint)`,
		},
		{
			name:    "create_schema_bare_identifier",
			action:  "create",
			params:  `{"autocommit":true,"target":"schema","name":"analytics","definition":"AUTHORIZATION CURRENT_USER"}`,
			wantSQL: `CREATE SCHEMA "analytics" AUTHORIZATION CURRENT_USER`,
		},
		{
			name:    "alter_table",
			action:  "alter",
			params:  `{"autocommit":true,"target":"table","name":"users","definition":"ADD COLUMN age int"}`,
			wantSQL: `ALTER TABLE "users" ADD COLUMN age int`,
		},
		{
			name:    "drop_view_if_exists_cascade",
			action:  "drop",
			params:  `{"autocommit":true,"target":"view","name":"v_orders","if_exists":true,"cascade":true}`,
			wantSQL: `DROP VIEW IF EXISTS "v_orders" CASCADE`,
		},
		{
			name:    "drop_sequence",
			action:  "drop",
			params:  `{"autocommit":true,"target":"sequence","schema":"app","name":"order_seq"}`,
			wantSQL: `DROP SEQUENCE "app"."order_seq"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, err := env.dispatch(t, "schema", tt.action, tt.params)
			require.NoError(t, err)
			require.Len(t, env.pool.recorded(), 1)
			assert.Equal(t, tt.wantSQL, env.pool.recorded()[0])
		})
	}
}

func TestSchemaDDL_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		action   string
		params   string
		wantCode string
	}{
		{
			name:     "hostile_identifier",
			action:   "drop",
			params:   `{"autocommit":true,"target":"table","name":"users; DROP TABLE accounts"}`,
			wantCode: "INVALID_IDENTIFIER",
		},
		{
			name:     "unknown_target",
			action:   "create",
			params:   `{"autocommit":true,"target":"extension","name":"hstore","definition":""}`,
			wantCode: "INVALID_PARAMETERS", // empty definition fails first
		},
		{
			name:     "unknown_target_with_definition",
			action:   "create",
			params:   `{"autocommit":true,"target":"extension","name":"hstore","definition":"VERSION '1.4'"}`,
			wantCode: "NOT_IMPLEMENTED",
		},
		{
			name:     "create_requires_definition",
			action:   "create",
			params:   `{"autocommit":true,"target":"table","name":"users"}`,
			wantCode: "INVALID_PARAMETERS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, err := env.dispatch(t, "schema", tt.action, tt.params)
			require.Error(t, err)
			assert.True(t, apperr.IsCode(err, tt.wantCode))
			assert.Empty(t, env.pool.recorded(), "rejected DDL must not execute")
		})
	}
}

func TestSchemaDDL_RunsInSession(t *testing.T) {
	env := newTestEnv(t)
	begun, err := env.dispatch(t, "transaction", "begin", `{}`)
	require.NoError(t, err)
	id := begun.ActiveSession.ID

	_, err = env.dispatch(t, "schema", "create",
		`{"session_id":"`+id+`","target":"table","name":"staging","definition":"(id int)"}`)
	require.NoError(t, err)

	assert.Contains(t, env.pool.derived.recorded(), `CREATE TABLE "staging" (id int)`)
	assert.Empty(t, env.pool.recorded(), "session DDL must not touch the shared pool")
}
