// Copyright (c) 2026 PgGate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package gateway assembles the PgGate core: pool executor, transaction session
registry, handler set and dispatcher, behind one facade that transport
bindings call into.

The core is transport-agnostic. The HTTP binding under internal/api is one
consumer; an embedding program can construct a [Gateway] directly and call
[Gateway.Dispatch] with parsed requests.
*/
package gateway

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/pggate/internal/gateway/dispatch"
	"github.com/taibuivan/pggate/internal/gateway/executor"
	"github.com/taibuivan/pggate/internal/gateway/handler"
	"github.com/taibuivan/pggate/internal/gateway/session"
	"github.com/taibuivan/pggate/internal/platform/config"
)

// Gateway is the assembled PgGate core.
type Gateway struct {
	pool       *executor.PoolExecutor
	sessions   *session.Manager
	dispatcher *dispatch.Dispatcher
	log        *slog.Logger
}

// New wires the core against an already-connected pgx pool.
func New(pool *pgxpool.Pool, cfg *config.Config, log *slog.Logger) *Gateway {
	poolExecutor := executor.NewPoolExecutor(pool)
	sessions := session.NewManager(poolExecutor, cfg.MaxSessions, cfg.SessionTTL, log)
	dispatcher := dispatch.New(sessions, log)
	handler.NewSet(poolExecutor, sessions, log).Register(dispatcher)

	return &Gateway{
		pool:       poolExecutor,
		sessions:   sessions,
		dispatcher: dispatcher,
		log:        log,
	}
}

// Dispatch routes one parsed request through the dispatcher.
func (gateway *Gateway) Dispatch(ctx context.Context, req dispatch.Request) (*dispatch.Envelope, error) {
	return gateway.dispatcher.Dispatch(ctx, req)
}

// Sessions exposes the session registry for observability surfaces.
func (gateway *Gateway) Sessions() *session.Manager {
	return gateway.sessions
}

// Shutdown rolls back and destroys every live session, then closes the pool.
// Order matters: sessions hold pool connections.
func (gateway *Gateway) Shutdown(ctx context.Context) {
	gateway.sessions.Shutdown(ctx)
	_ = gateway.pool.Close(ctx, true)
	gateway.log.Info("gateway shut down")
}
