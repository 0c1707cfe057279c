// Copyright (c) 2026 PgGate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, session registry bounds, and cross-cutting keys
that are shared between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Sessions: Registry bounds and expiry thresholds.
  - Identifiers: PostgreSQL limits baked into the sanitizer.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "pggate"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	// Statement execution happens inside this window, so it is deliberately generous.
	DefaultWriteTimeout = 120 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout caps the total time one dispatch may run, including
	// statement execution. Must stay below DefaultWriteTimeout.
	GlobalRequestTimeout = 60 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Transaction Sessions

const (
	// DefaultMaxSessions bounds the number of concurrently live transaction sessions.
	DefaultMaxSessions = 10

	// DefaultSessionTTL is the sliding idle window after which an untouched
	// session is rolled back and destroyed.
	DefaultSessionTTL = 30 * time.Minute

	// SessionExpiryWarning is the remaining-lifetime threshold below which
	// responses start carrying an expiring-soon reminder.
	SessionExpiryWarning = 5 * time.Minute

	// SessionCleanupTimeout bounds the best-effort ROLLBACK issued when a
	// session is reaped or the process shuts down.
	SessionCleanupTimeout = 5 * time.Second
)

// # PostgreSQL Identifiers

const (
	// MaxIdentifierBytes is PostgreSQL's NAMEDATALEN-1 identifier limit.
	MaxIdentifierBytes = 63
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
)

// # JSON Field Identifiers

const (
	FieldError  = "error"
	FieldCode   = "code"
	FieldStatus = "status"
)
