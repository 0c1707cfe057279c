// Copyright (c) 2026 PgGate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dispatch

import (
	"github.com/taibuivan/pggate/internal/platform/constants"
	"github.com/taibuivan/pggate/pkg/humandur"
)

// ActiveSession is the session-echo block attached to responses that should
// remind the caller about their transaction.
type ActiveSession struct {
	ID        string `json:"id"`
	IdleTime  string `json:"idle_time"`
	ExpiresIn string `json:"expires_in"`
	Hint      string `json:"hint"`
}

// Envelope is the structured response returned for every successful dispatch.
type Envelope struct {
	Result        any            `json:"result"`
	ActiveSession *ActiveSession `json:"active_session,omitempty"`
}

// Session-echo hints relayed by agents to their users.
const (
	hintBegin    = "use this session_id for subsequent operations"
	hintExpiring = "expiring soon, commit or roll back shortly"
)

// envelope decorates a successful result with active-session metadata.
//
// The block is attached when the action created a session (begin), when a
// mutation ran inside a referenced session, or when the referenced session is
// within the expiry-warning window. Reads on the shared pool carry no block:
// there is no session to remind the caller about.
func (d *Dispatcher) envelope(reg Registration, ref sessionRef, result any) *Envelope {
	out := &Envelope{Result: result}

	// A result that announces a freshly created session (begin) wins over
	// the session referenced in params.
	if carrier, ok := result.(SessionCarrier); ok && carrier.ActiveSessionID() != "" {
		if block := d.sessionBlock(carrier.ActiveSessionID(), hintBegin); block != nil {
			out.ActiveSession = block
			return out
		}
	}

	if ref.SessionID == "" {
		return out
	}

	info, ok := d.sessions.Info(ref.SessionID)
	if !ok {
		// Session closed by this very action (commit/rollback); nothing to echo.
		return out
	}

	switch {
	case info.ExpiresIn < constants.SessionExpiryWarning:
		out.ActiveSession = d.sessionBlock(ref.SessionID, hintExpiring)
	case reg.Marker == MarkerWrite:
		out.ActiveSession = d.sessionBlock(ref.SessionID, "active transaction: "+ref.SessionID)
	}

	return out
}

// sessionBlock builds the echo block for a live session; nil if the session
// vanished between the handler returning and the envelope being built.
func (d *Dispatcher) sessionBlock(id, hint string) *ActiveSession {
	info, ok := d.sessions.Info(id)
	if !ok {
		return nil
	}
	return &ActiveSession{
		ID:        id,
		IdleTime:  humandur.Format(info.IdleTime),
		ExpiresIn: humandur.Format(info.ExpiresIn),
		Hint:      hint,
	}
}
