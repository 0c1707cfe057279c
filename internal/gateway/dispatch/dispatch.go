// Copyright (c) 2026 PgGate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package dispatch routes incoming (tool, action, params) triples to their
registered handlers and decorates responses with the session-echo envelope.

Architecture:

  - Static registration: the handler table is built once at process start.
    Each registration carries its safety marker alongside the handler, so the
    default-deny write policy is a table lookup, never an SQL-text inspection.
  - The dispatcher peeks only at the shared session_id / autocommit fields of
    the raw params; full typed decoding belongs to each handler.
  - Structured action logs (tool, action, duration, error code) are emitted
    here so handlers stay free of logging boilerplate.
*/
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/pggate/internal/gateway/session"
	"github.com/taibuivan/pggate/internal/platform/apperr"
	"github.com/taibuivan/pggate/internal/platform/ctxutil"
)

// Marker classifies an action for the safety layer.
type Marker int

const (
	// MarkerRead marks actions that only read state.
	MarkerRead Marker = iota
	// MarkerWrite marks actions that mutate database state.
	MarkerWrite
	// MarkerControl marks transaction-lifecycle and observability actions.
	MarkerControl
)

// String renders the marker for logs.
func (m Marker) String() string {
	switch m {
	case MarkerWrite:
		return "write"
	case MarkerControl:
		return "control"
	default:
		return "read"
	}
}

// Request is one parsed client request. The protocol layer owns framing and
// correlation; the core only sees this triple.
type Request struct {
	Tool   string          `json:"tool"`
	Action string          `json:"action"`
	Params json.RawMessage `json:"params"`
}

// HandlerFunc executes one action against its typed view of params.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

// Registration binds a handler to its safety metadata.
type Registration struct {
	// Marker is the action's read/write/control classification.
	Marker Marker
	// RequiresWriteIntent subjects the action to the default-deny check:
	// params must carry session_id or autocommit=true. The stateless batch
	// action is MarkerWrite without this flag — it brings its own
	// transaction, which is the intent the check exists to establish.
	RequiresWriteIntent bool
	// Handle is the action implementation.
	Handle HandlerFunc
}

// SessionCarrier lets a handler result announce the session it created, so
// the envelope can echo it (the begin action).
type SessionCarrier interface {
	ActiveSessionID() string
}

// sessionRef is the dispatcher's narrow view of params: just the two fields
// shared by every session-aware action.
type sessionRef struct {
	SessionID  string `json:"session_id"`
	Autocommit bool   `json:"autocommit"`
}

// Dispatcher routes requests through the static handler table.
type Dispatcher struct {
	routes   map[string]Registration
	sessions *session.Manager
	log      *slog.Logger
}

// New creates an empty dispatcher; handlers register themselves at wiring time.
func New(sessions *session.Manager, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		routes:   make(map[string]Registration),
		sessions: sessions,
		log:      log,
	}
}

// Register installs a handler for (tool, action). Duplicate registration is
// a wiring bug and panics at startup.
func (d *Dispatcher) Register(tool, action string, reg Registration) {
	key := routeKey(tool, action)
	if _, exists := d.routes[key]; exists {
		panic("dispatch: duplicate registration for " + key)
	}
	d.routes[key] = reg
}

// Dispatch routes one request: safety check, handler call, envelope.
//
// Errors propagate unmodified from the handler; the dispatcher only records
// them. Nothing is retried.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Envelope, error) {
	logger := ctxutil.GetLogger(ctx).With(
		slog.String("tool", req.Tool),
		slog.String("action", req.Action),
	)

	reg, ok := d.routes[routeKey(req.Tool, req.Action)]
	if !ok {
		return nil, apperr.NotImplemented(fmt.Sprintf("action %s.%s", req.Tool, req.Action))
	}

	// Narrow decode of the shared session fields. A malformed payload yields
	// the zero ref; the handler's typed decode reports the real error.
	var ref sessionRef
	if len(req.Params) > 0 {
		_ = json.Unmarshal(req.Params, &ref)
	}

	// Default-deny: write intent must be explicit, before any executor call.
	if reg.RequiresWriteIntent && ref.SessionID == "" && !ref.Autocommit {
		err := apperr.SafetyCheckFailed(req.Tool + "." + req.Action)
		logger.Warn("action_denied", slog.String("code", err.Code))
		return nil, err
	}

	start := time.Now()
	result, err := reg.Handle(ctx, req.Params)
	duration := time.Since(start)

	if err != nil {
		code := "INTERNAL_ERROR"
		if ae := apperr.As(err); ae != nil {
			code = ae.Code
		}
		logger.Warn("action_failed",
			slog.String("marker", reg.Marker.String()),
			slog.Int64("duration_ms", duration.Milliseconds()),
			slog.String("code", code),
		)
		return nil, err
	}

	logger.Info("action_completed",
		slog.String("marker", reg.Marker.String()),
		slog.Int64("duration_ms", duration.Milliseconds()),
	)

	return d.envelope(reg, ref, result), nil
}

func routeKey(tool, action string) string {
	return tool + "." + action
}
