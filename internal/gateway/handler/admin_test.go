// Copyright (c) 2026 PgGate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/pggate/internal/platform/apperr"
)

func TestAdminVacuum(t *testing.T) {
	tests := []struct {
		name    string
		params  string
		wantSQL string
	}{
		{"whole_database", `{}`, "VACUUM (ANALYZE)"},
		{"single_table", `{"table":"orders"}`, `VACUUM (ANALYZE) "orders"`},
		{"full_qualified", `{"schema":"app","table":"orders","full":true}`, `VACUUM (FULL, ANALYZE) "app"."orders"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, err := env.dispatch(t, "admin", "vacuum", tt.params)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.wantSQL}, env.pool.recorded())
		})
	}
}

func TestAdminAnalyze(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.dispatch(t, "admin", "analyze", `{"schema":"app","table":"orders"}`)
	require.NoError(t, err)
	assert.Equal(t, []string{`ANALYZE "app"."orders"`}, env.pool.recorded())
}

func TestAdminReindex(t *testing.T) {
	tests := []struct {
		name     string
		params   string
		wantSQL  string
		wantCode string
	}{
		{"table", `{"target":"table","name":"orders"}`, `REINDEX TABLE "orders"`, ""},
		{"index", `{"target":"index","name":"orders_pkey"}`, `REINDEX INDEX "orders_pkey"`, ""},
		{"schema", `{"target":"schema","name":"app"}`, `REINDEX SCHEMA "app"`, ""},
		{"table_without_name", `{"target":"table"}`, "", "INVALID_PARAMETERS"},
		{"database_wide_rejected", `{"target":"database"}`, "", "INVALID_PARAMETERS"},
		{"database_named_rejected", `{"target":"database","name":"pggate"}`, "", "INVALID_PARAMETERS"},
		{"bogus_target", `{"target":"tablespace","name":"x"}`, "", "INVALID_PARAMETERS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, err := env.dispatch(t, "admin", "reindex", tt.params)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, apperr.IsCode(err, tt.wantCode))
				assert.Empty(t, env.pool.recorded(), "rejected reindex must not execute")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{tt.wantSQL}, env.pool.recorded())
		})
	}
}

func TestAdminTerminate(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.dispatch(t, "admin", "terminate", `{"pid":4242}`)
	require.NoError(t, err)
	require.Len(t, env.pool.argLists, 1)
	assert.EqualValues(t, 4242, env.pool.argLists[0][0])

	_, err = env.dispatch(t, "admin", "terminate", `{"pid":0}`)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "INVALID_PARAMETERS"))
}

func TestAdminSettingsGet(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.dispatch(t, "admin", "settings.get", `{"name":"work_mem"}`)
	require.NoError(t, err)
	require.Len(t, env.pool.argLists, 1)
	assert.Equal(t, []any{"work_mem"}, env.pool.argLists[0])

	// Unnamed lookup falls back to a match-all pattern.
	_, err = env.dispatch(t, "admin", "settings.get", `{}`)
	require.NoError(t, err)
	assert.Equal(t, []any{"%"}, env.pool.argLists[1])
}

func TestAdminSettingsSet(t *testing.T) {
	env := newTestEnv(t)

	// Write intent required.
	_, err := env.dispatch(t, "admin", "settings.set", `{"name":"work_mem","value":"64MB"}`)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "SAFETY_CHECK_FAILED"))

	_, err = env.dispatch(t, "admin", "settings.set",
		`{"name":"work_mem","value":"64MB","autocommit":true}`)
	require.NoError(t, err)
	require.Len(t, env.pool.argLists, 1)
	// set_config(name, value, is_local): pool-scoped changes are not local.
	assert.Equal(t, []any{"work_mem", "64MB", false}, env.pool.argLists[0])
}

func TestMonitorActions(t *testing.T) {
	for _, action := range []string{"activity", "locks", "table_sizes", "connections", "version"} {
		t.Run(action, func(t *testing.T) {
			env := newTestEnv(t)
			_, err := env.dispatch(t, "monitor", action, `{}`)
			require.NoError(t, err)
			assert.NotEmpty(t, env.pool.recorded())
		})
	}
}

func TestMonitorActivity_LimitValidation(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.dispatch(t, "monitor", "activity", `{"limit":-1}`)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "INVALID_PARAMETERS"))
}

func TestMonitorConnections_MergesLimits(t *testing.T) {
	env := newTestEnv(t)
	env.pool.result = nil
	envelope, err := env.dispatch(t, "monitor", "connections", `{}`)
	require.NoError(t, err)

	out, ok := envelope.Result.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, out, "by_state")
}
