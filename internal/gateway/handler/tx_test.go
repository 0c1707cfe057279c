// Copyright (c) 2026 PgGate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/pggate/internal/platform/apperr"
)

func TestTxBegin_IsolationLevel(t *testing.T) {
	tests := []struct {
		name     string
		params   string
		wantSQL  string
		wantCode string
	}{
		{"default", `{}`, "BEGIN", ""},
		{"serializable", `{"isolation_level":"serializable"}`, "BEGIN ISOLATION LEVEL serializable", ""},
		{"repeatable_read", `{"isolation_level":"repeatable read"}`, "BEGIN ISOLATION LEVEL repeatable read", ""},
		{"bogus_level", `{"isolation_level":"chaos"}`, "", "INVALID_PARAMETERS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			envelope, err := env.dispatch(t, "transaction", "begin", tt.params)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, apperr.IsCode(err, tt.wantCode))
				assert.Zero(t, env.sessions.Len(), "rejected begin must not register a session")
				return
			}
			require.NoError(t, err)
			require.NotNil(t, envelope.ActiveSession)
			assert.Equal(t, []string{tt.wantSQL}, env.pool.derived.recorded())
			assert.Equal(t, 1, env.sessions.Len())
		})
	}
}

func TestTxBegin_FailedBeginDiscardsSession(t *testing.T) {
	env := newTestEnv(t)
	env.pool.failOn = "BEGIN"

	_, err := env.dispatch(t, "transaction", "begin", `{}`)
	require.Error(t, err)
	assert.Zero(t, env.sessions.Len())
	assert.True(t, env.pool.derived.destroyed, "session teardown destroys the pinned connection")
}

func TestTxCommit_ClosesSession(t *testing.T) {
	env := newTestEnv(t)
	begun, err := env.dispatch(t, "transaction", "begin", `{}`)
	require.NoError(t, err)
	id := begun.ActiveSession.ID

	_, err = env.dispatch(t, "transaction", "commit", `{"session_id":"`+id+`"}`)
	require.NoError(t, err)

	assert.Contains(t, env.pool.derived.recorded(), "COMMIT")
	assert.Zero(t, env.sessions.Len())
	assert.True(t, env.pool.derived.destroyed)

	// The retired session is gone for good.
	_, err = env.dispatch(t, "transaction", "commit", `{"session_id":"`+id+`"}`)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "UNKNOWN_SESSION"))
}

func TestTxCommit_FailureKeepsSessionOpen(t *testing.T) {
	env := newTestEnv(t)
	begun, err := env.dispatch(t, "transaction", "begin", `{}`)
	require.NoError(t, err)
	id := begun.ActiveSession.ID

	env.pool.derived.failOn = "COMMIT"
	_, err = env.dispatch(t, "transaction", "commit", `{"session_id":"`+id+`"}`)
	require.Error(t, err)
	assert.Equal(t, 1, env.sessions.Len(), "failed commit leaves the session for an explicit rollback")

	env.pool.derived.failOn = ""
	_, err = env.dispatch(t, "transaction", "rollback", `{"session_id":"`+id+`"}`)
	require.NoError(t, err)
	assert.Zero(t, env.sessions.Len())
}

func TestTxCommit_RequiresSessionID(t *testing.T) {
	env := newTestEnv(t)
	for _, action := range []string{"commit", "rollback", "savepoint", "release"} {
		_, err := env.dispatch(t, "transaction", action, `{"name":"sp1"}`)
		require.Error(t, err, action)
		assert.True(t, apperr.IsCode(err, "MISSING_SESSION_ID"), action)
	}
}

func TestTxSavepoint(t *testing.T) {
	env := newTestEnv(t)
	begun, err := env.dispatch(t, "transaction", "begin", `{}`)
	require.NoError(t, err)
	id := begun.ActiveSession.ID

	_, err = env.dispatch(t, "transaction", "savepoint", `{"session_id":"`+id+`","name":"sp1"}`)
	require.NoError(t, err)
	_, err = env.dispatch(t, "transaction", "savepoint", `{"session_id":"`+id+`","name":"sp1","rollback":true}`)
	require.NoError(t, err)
	_, err = env.dispatch(t, "transaction", "release", `{"session_id":"`+id+`","name":"sp1"}`)
	require.NoError(t, err)

	statements := env.pool.derived.recorded()
	assert.Contains(t, statements, `SAVEPOINT "sp1"`)
	assert.Contains(t, statements, `ROLLBACK TO SAVEPOINT "sp1"`)
	assert.Contains(t, statements, `RELEASE SAVEPOINT "sp1"`)
}

func TestTxSavepoint_RejectsHostileName(t *testing.T) {
	env := newTestEnv(t)
	begun, err := env.dispatch(t, "transaction", "begin", `{}`)
	require.NoError(t, err)
	id := begun.ActiveSession.ID

	_, err = env.dispatch(t, "transaction", "savepoint",
		`{"session_id":"`+id+`","name":"sp1; DROP TABLE users"}`)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "INVALID_IDENTIFIER"))
}

func TestTxList(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.dispatch(t, "transaction", "begin", `{}`)
	require.NoError(t, err)
	_, err = env.dispatch(t, "transaction", "begin", `{}`)
	require.NoError(t, err)

	envelope, err := env.dispatch(t, "transaction", "list", `{}`)
	require.NoError(t, err)

	listing, ok := envelope.Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 2, listing["count"])
}
