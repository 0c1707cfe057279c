// Copyright (c) 2026 PgGate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/pggate/internal/gateway/executor"
	"github.com/taibuivan/pggate/internal/gateway/session"
	"github.com/taibuivan/pggate/internal/platform/apperr"
)

// fakeExecutor records executed statements and close mode in place of a real
// pinned connection.
type fakeExecutor struct {
	mu         sync.Mutex
	statements []string
	closed     bool
	destroyed  bool
}

func (f *fakeExecutor) Execute(ctx context.Context, sql string, args []any, opts executor.Options) (*executor.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statements = append(f.statements, sql)
	return &executor.Result{Command: sql}, nil
}

func (f *fakeExecutor) DeriveSession(ctx context.Context) (executor.Executor, error) {
	return f, nil
}

func (f *fakeExecutor) Close(ctx context.Context, destroy bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.destroyed = destroy
	return nil
}

func (f *fakeExecutor) sawRollback() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.statements {
		if s == "ROLLBACK" {
			return true
		}
	}
	return false
}

func (f *fakeExecutor) wasDestroyed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed && f.destroyed
}

// fakeSource hands out fresh fake executors and counts how many were derived.
type fakeSource struct {
	mu      sync.Mutex
	derived []*fakeExecutor
	count   atomic.Int32
}

func (s *fakeSource) DeriveSession(ctx context.Context) (executor.Executor, error) {
	s.count.Add(1)
	f := &fakeExecutor{}
	s.mu.Lock()
	s.derived = append(s.derived, f)
	s.mu.Unlock()
	return f, nil
}

func (s *fakeSource) last() *fakeExecutor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.derived[len(s.derived)-1]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

/*
TestManager_BeginGetClose covers the basic rent-use-return cycle and the
destructive close invariant.
*/
func TestManager_BeginGetClose(t *testing.T) {
	source := &fakeSource{}
	manager := session.NewManager(source, 5, time.Minute, testLogger())
	ctx := context.Background()

	id, err := manager.Begin(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, 1, manager.Len())

	exec, err := manager.Get(id)
	require.NoError(t, err)
	require.NotNil(t, exec)

	manager.Close(ctx, id, "commit")
	assert.Equal(t, 0, manager.Len())

	// The connection must have been destroyed, never pooled again.
	assert.True(t, source.last().wasDestroyed())

	// Subsequent use of the ID fails with UNKNOWN_SESSION.
	_, err = manager.Get(id)
	require.Error(t, err)
	assert.Equal(t, "UNKNOWN_SESSION", apperr.As(err).Code)

	// Close is idempotent.
	manager.Close(ctx, id, "commit")
}

/*
TestManager_UnknownSession checks lookup of an ID that was never issued.
*/
func TestManager_UnknownSession(t *testing.T) {
	manager := session.NewManager(&fakeSource{}, 5, time.Minute, testLogger())

	_, err := manager.Get("0198b2f1-0000-7000-8000-000000000000")
	require.Error(t, err)
	assert.Equal(t, "UNKNOWN_SESSION", apperr.As(err).Code)
}

/*
TestManager_Bound verifies the registry's hard capacity bound and that a slot
freed by Close becomes usable again.
*/
func TestManager_Bound(t *testing.T) {
	source := &fakeSource{}
	manager := session.NewManager(source, 2, time.Minute, testLogger())
	ctx := context.Background()

	first, err := manager.Begin(ctx)
	require.NoError(t, err)
	_, err = manager.Begin(ctx)
	require.NoError(t, err)

	_, err = manager.Begin(ctx)
	require.Error(t, err)
	assert.Equal(t, "SESSION_LIMIT_EXCEEDED", apperr.As(err).Code)
	assert.Equal(t, 2, manager.Len())

	manager.Close(ctx, first, "rollback")

	_, err = manager.Begin(ctx)
	assert.NoError(t, err)
}

/*
TestManager_BoundUnderConcurrency hammers Begin from many goroutines and
asserts the registry never exceeds its bound.
*/
func TestManager_BoundUnderConcurrency(t *testing.T) {
	source := &fakeSource{}
	const max = 3
	manager := session.NewManager(source, max, time.Minute, testLogger())
	ctx := context.Background()

	var wg sync.WaitGroup
	var succeeded atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := manager.Begin(ctx); err == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(max), succeeded.Load())
	assert.Equal(t, max, manager.Len())
}

/*
TestManager_TTLExpiry lets a session idle past its TTL and asserts the reaper
rolled it back, destroyed it, and removed it from the registry.
*/
func TestManager_TTLExpiry(t *testing.T) {
	source := &fakeSource{}
	manager := session.NewManager(source, 5, 50*time.Millisecond, testLogger())
	ctx := context.Background()

	id, err := manager.Begin(ctx)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return manager.Len() == 0
	}, 2*time.Second, 10*time.Millisecond)

	_, err = manager.Get(id)
	require.Error(t, err)
	assert.Equal(t, "UNKNOWN_SESSION", apperr.As(err).Code)

	fake := source.last()
	assert.True(t, fake.sawRollback())
	assert.True(t, fake.wasDestroyed())
}

/*
TestManager_SlidingTTL refreshes a session continuously for several TTL
windows and asserts it survives, then stops refreshing and asserts expiry.
*/
func TestManager_SlidingTTL(t *testing.T) {
	source := &fakeSource{}
	const ttl = 80 * time.Millisecond
	manager := session.NewManager(source, 5, ttl, testLogger())
	ctx := context.Background()

	id, err := manager.Begin(ctx)
	require.NoError(t, err)

	// Touch the session every ttl/4 for 4 full TTLs; each Get slides the window.
	deadline := time.Now().Add(4 * ttl)
	for time.Now().Before(deadline) {
		_, err := manager.Get(id)
		require.NoError(t, err, "session expired despite continuous refresh")
		time.Sleep(ttl / 4)
	}

	// Now go idle; the reaper must fire within the TTL window (plus slack).
	require.Eventually(t, func() bool {
		_, ok := manager.Info(id)
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

/*
TestManager_ListAndInfo checks the read-only snapshot surfaces.
*/
func TestManager_ListAndInfo(t *testing.T) {
	source := &fakeSource{}
	manager := session.NewManager(source, 5, time.Minute, testLogger())
	ctx := context.Background()

	assert.Empty(t, manager.List())

	id, err := manager.Begin(ctx)
	require.NoError(t, err)

	infos := manager.List()
	require.Len(t, infos, 1)
	assert.Equal(t, id, infos[0].ID)
	assert.GreaterOrEqual(t, infos[0].ExpiresIn, time.Duration(0))
	assert.LessOrEqual(t, infos[0].ExpiresIn, time.Minute)

	info, ok := manager.Info(id)
	require.True(t, ok)
	assert.Equal(t, id, info.ID)

	_, ok = manager.Info("missing")
	assert.False(t, ok)
}

/*
TestManager_Shutdown drains all sessions with rollback+destroy and rejects
new Begins afterwards.
*/
func TestManager_Shutdown(t *testing.T) {
	source := &fakeSource{}
	manager := session.NewManager(source, 5, time.Minute, testLogger())
	ctx := context.Background()

	_, err := manager.Begin(ctx)
	require.NoError(t, err)
	_, err = manager.Begin(ctx)
	require.NoError(t, err)

	manager.Shutdown(ctx)
	assert.Equal(t, 0, manager.Len())

	source.mu.Lock()
	derived := append([]*fakeExecutor(nil), source.derived...)
	source.mu.Unlock()
	for _, fake := range derived {
		assert.True(t, fake.sawRollback())
		assert.True(t, fake.wasDestroyed())
	}

	_, err = manager.Begin(ctx)
	require.Error(t, err)
}
