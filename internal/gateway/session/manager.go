// Copyright (c) 2026 PgGate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package session maintains the bounded registry of live transaction sessions.

Each entry owns one dedicated database connection (wrapped in a session
executor) rented out to a client for the lifetime of one PostgreSQL
transaction. The registry enforces a creation bound, applies a sliding idle
TTL per session, and destructively cleans up expired entries: the reaper
issues a best-effort ROLLBACK and terminates the connection, so it never
returns to the shared pool.

Concurrency model:

  - A single registry mutex serializes Begin/Get/Close/List/Shutdown.
  - The mutex is never held across a database call; connection acquisition
    and teardown happen outside the critical section.
  - Expiry timers ride the runtime timer heap (time.AfterFunc / Timer.Reset),
    so rescheduling is O(log N) and idle sessions cost no goroutine.
*/
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/pggate/internal/gateway/executor"
	"github.com/taibuivan/pggate/internal/platform/apperr"
	"github.com/taibuivan/pggate/internal/platform/constants"
)

// errShutdown marks Begins that raced an orderly shutdown.
var errShutdown = errors.New("session registry is shut down")

// Source supplies fresh session executors. In production this is the pool
// executor; tests substitute fakes.
type Source interface {
	DeriveSession(ctx context.Context) (executor.Executor, error)
}

// Info is a read-only snapshot of one live session.
type Info struct {
	// ID is the opaque session identifier.
	ID string `json:"id"`
	// IdleTime is how long ago the session was last used.
	IdleTime time.Duration `json:"-"`
	// ExpiresIn is the remaining lifetime before the reaper fires.
	ExpiresIn time.Duration `json:"-"`
}

// entry is one live registry slot.
type entry struct {
	exec       executor.Executor
	lastActive time.Time
	timer      *time.Timer
}

// Manager is the bounded registry of live transaction sessions.
type Manager struct {
	source Source
	max    int
	ttl    time.Duration
	log    *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
}

// NewManager creates a registry bounded at max live sessions, each with the
// given sliding idle TTL.
func NewManager(source Source, max int, ttl time.Duration, log *slog.Logger) *Manager {
	return &Manager{
		source:  source,
		max:     max,
		ttl:     ttl,
		log:     log,
		entries: make(map[string]*entry),
	}
}

// Begin acquires a dedicated connection, registers it under a fresh opaque
// ID, arms the expiry timer, and returns the ID.
//
// The capacity bound is checked twice: once before the (suspending)
// connection acquisition as a fast path, and again under the lock before
// insertion. If concurrent Begins raced past the first check, the freshly
// acquired connection is destroyed and SESSION_LIMIT_EXCEEDED is returned —
// the registry never exceeds its bound.
func (manager *Manager) Begin(ctx context.Context) (string, error) {
	manager.mu.Lock()
	if manager.closed {
		manager.mu.Unlock()
		return "", apperr.Internal(errShutdown)
	}
	if len(manager.entries) >= manager.max {
		manager.mu.Unlock()
		return "", apperr.SessionLimitExceeded(manager.max)
	}
	manager.mu.Unlock()

	exec, err := manager.source.DeriveSession(ctx)
	if err != nil {
		return "", err
	}

	manager.mu.Lock()
	if manager.closed || len(manager.entries) >= manager.max {
		closed := manager.closed
		manager.mu.Unlock()
		manager.destroy(ctx, exec, "", false)
		if closed {
			return "", apperr.Internal(errShutdown)
		}
		return "", apperr.SessionLimitExceeded(manager.max)
	}

	id := newSessionID()
	manager.entries[id] = &entry{
		exec:       exec,
		lastActive: time.Now(),
		timer:      time.AfterFunc(manager.ttl, func() { manager.expire(id) }),
	}
	manager.mu.Unlock()

	manager.log.Info("session_opened", slog.String("session_id", id))
	return id, nil
}

// Get returns the executor for id, refreshing the sliding TTL.
//
// The last-active update and timer reschedule happen atomically under the
// registry lock before the executor is returned, so a concurrent reaper
// firing on a stale deadline will observe the refresh and re-arm instead of
// destroying the session out from under the caller.
func (manager *Manager) Get(id string) (executor.Executor, error) {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	e, ok := manager.entries[id]
	if !ok {
		return nil, apperr.UnknownSession(id)
	}

	e.lastActive = time.Now()
	e.timer.Reset(manager.ttl)
	return e.exec, nil
}

// Info returns a snapshot of one session without refreshing its TTL.
// Used by the response envelope to report remaining lifetime.
func (manager *Manager) Info(id string) (Info, bool) {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	e, ok := manager.entries[id]
	if !ok {
		return Info{}, false
	}
	return manager.snapshot(id, e), true
}

// List returns a snapshot of all live sessions. Purely read-only: no TTL is
// refreshed.
func (manager *Manager) List() []Info {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	infos := make([]Info, 0, len(manager.entries))
	for id, e := range manager.entries {
		infos = append(infos, manager.snapshot(id, e))
	}
	return infos
}

// Close removes id from the registry and destroys its connection. The caller
// has already committed or rolled back (or the session expired), so
// connection-teardown failures are logged, not propagated. Idempotent.
func (manager *Manager) Close(ctx context.Context, id, reason string) {
	manager.mu.Lock()
	e, ok := manager.entries[id]
	if ok {
		delete(manager.entries, id)
		e.timer.Stop()
	}
	manager.mu.Unlock()

	if !ok {
		return
	}

	manager.destroy(ctx, e.exec, id, false)
	manager.log.Info("session_closed",
		slog.String("session_id", id),
		slog.String("reason", reason),
	)
}

// Len reports the number of live sessions.
func (manager *Manager) Len() int {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	return len(manager.entries)
}

// Shutdown closes every live session concurrently, best-effort rolling each
// back first, and marks the registry closed for further Begins.
func (manager *Manager) Shutdown(ctx context.Context) {
	manager.mu.Lock()
	manager.closed = true
	remaining := manager.entries
	manager.entries = make(map[string]*entry)
	manager.mu.Unlock()

	group, groupCtx := errgroup.WithContext(ctx)
	for id, e := range remaining {
		e.timer.Stop()
		group.Go(func() error {
			manager.destroy(groupCtx, e.exec, id, true)
			return nil
		})
	}
	_ = group.Wait()

	if len(remaining) > 0 {
		manager.log.Info("session_registry_drained", slog.Int("count", len(remaining)))
	}
}

// expire is the timer callback. It re-validates the deadline under the lock:
// a Get that refreshed the session between the timer firing and the lock
// acquisition wins, and the timer is re-armed for the remaining window.
func (manager *Manager) expire(id string) {
	manager.mu.Lock()
	e, ok := manager.entries[id]
	if !ok {
		manager.mu.Unlock()
		return
	}

	idle := time.Since(e.lastActive)
	if idle < manager.ttl {
		e.timer.Reset(manager.ttl - idle)
		manager.mu.Unlock()
		return
	}

	delete(manager.entries, id)
	manager.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), constants.SessionCleanupTimeout)
	defer cancel()
	manager.destroy(ctx, e.exec, id, true)

	manager.log.Warn("session_expired",
		slog.String("session_id", id),
		slog.Duration("idle", idle),
	)
}

// destroy best-effort rolls back and physically terminates a session
// executor's connection. The rollback is allowed to fail — the connection
// may already be broken — and teardown errors are only logged.
func (manager *Manager) destroy(ctx context.Context, exec executor.Executor, id string, rollback bool) {
	if rollback {
		if _, err := exec.Execute(ctx, "ROLLBACK", nil, executor.Options{}); err != nil {
			manager.log.Debug("session_rollback_failed",
				slog.String("session_id", id),
				slog.Any("error", err),
			)
		}
	}
	if err := exec.Close(ctx, true); err != nil {
		manager.log.Error("session_connection_close_failed",
			slog.String("session_id", id),
			slog.Any("error", err),
		)
	}
}

// snapshot builds an Info for an entry. Caller holds the lock.
func (manager *Manager) snapshot(id string, e *entry) Info {
	idle := time.Since(e.lastActive)
	expires := manager.ttl - idle
	if expires < 0 {
		expires = 0
	}
	return Info{ID: id, IdleTime: idle, ExpiresIn: expires}
}

// newSessionID mints an opaque, never-reused session identifier. UUIDv7 keeps
// IDs time-sortable in logs; the v4 fallback only matters if the entropy
// source misbehaves.
func newSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
