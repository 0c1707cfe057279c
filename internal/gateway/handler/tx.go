// Copyright (c) 2026 PgGate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package handler

import (
	"context"
	"encoding/json"

	"github.com/taibuivan/pggate/internal/gateway/executor"
	"github.com/taibuivan/pggate/internal/gateway/sanitize"
	"github.com/taibuivan/pggate/internal/platform/apperr"
	"github.com/taibuivan/pggate/internal/platform/validate"
	"github.com/taibuivan/pggate/pkg/humandur"
)

/*
# Transaction Handlers

Session lifecycle. begin registers a pinned connection in the session
registry; commit and rollback end the transaction and always retire the
connection rather than returning it to the shared pool.
*/

type beginParams struct {
	IsolationLevel string `json:"isolation_level"`
}

type beginResult struct {
	SessionID      string `json:"session_id"`
	IsolationLevel string `json:"isolation_level,omitempty"`
}

// ActiveSessionID marks the begin result as a session announcement for the
// response envelope.
func (result beginResult) ActiveSessionID() string { return result.SessionID }

func (h *Set) txBegin(ctx context.Context, raw json.RawMessage) (any, error) {
	request, err := decode[beginParams](raw)
	if err != nil {
		return nil, err
	}
	var v validate.Validator
	if err := v.
		OneOf("isolation_level", request.IsolationLevel,
			"", "read committed", "repeatable read", "serializable").
		Err(); err != nil {
		return nil, err
	}

	id, err := h.sessions.Begin(ctx)
	if err != nil {
		return nil, err
	}
	exec, err := h.sessions.Get(id)
	if err != nil {
		return nil, err
	}

	sql := "BEGIN"
	if request.IsolationLevel != "" {
		// The level is drawn from the closed set above, never from raw input.
		sql = "BEGIN ISOLATION LEVEL " + request.IsolationLevel
	}
	if _, err := exec.Execute(ctx, sql, nil, executor.Options{}); err != nil {
		// The registry entry is useless without an open transaction.
		h.sessions.Close(ctx, id, "begin failed")
		return nil, err
	}

	return beginResult{SessionID: id, IsolationLevel: request.IsolationLevel}, nil
}

type sessionOnlyParams struct {
	SessionID string `json:"session_id"`
}

// endTransaction runs COMMIT or ROLLBACK on the session's pinned connection
// and retires the session only when the statement succeeded. On failure the
// session stays registered so the caller can still roll back explicitly.
func (h *Set) endTransaction(ctx context.Context, raw json.RawMessage, verb, action string) (any, error) {
	request, err := decode[sessionOnlyParams](raw)
	if err != nil {
		return nil, err
	}
	if request.SessionID == "" {
		return nil, apperr.MissingSessionID(action)
	}

	exec, err := h.sessions.Get(request.SessionID)
	if err != nil {
		return nil, err
	}
	result, err := exec.Execute(ctx, verb, nil, executor.Options{})
	if err != nil {
		return nil, err
	}
	h.sessions.Close(ctx, request.SessionID, action)
	return result, nil
}

func (h *Set) txCommit(ctx context.Context, raw json.RawMessage) (any, error) {
	return h.endTransaction(ctx, raw, "COMMIT", "transaction.commit")
}

func (h *Set) txRollback(ctx context.Context, raw json.RawMessage) (any, error) {
	return h.endTransaction(ctx, raw, "ROLLBACK", "transaction.rollback")
}

type savepointParams struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	Rollback  bool   `json:"rollback"`
}

func (h *Set) txSavepoint(ctx context.Context, raw json.RawMessage) (any, error) {
	request, err := decode[savepointParams](raw)
	if err != nil {
		return nil, err
	}
	if request.SessionID == "" {
		return nil, apperr.MissingSessionID("transaction.savepoint")
	}
	name, err := sanitize.Identifier(request.Name)
	if err != nil {
		return nil, err
	}

	exec, err := h.sessions.Get(request.SessionID)
	if err != nil {
		return nil, err
	}
	sql := "SAVEPOINT " + name
	if request.Rollback {
		sql = "ROLLBACK TO SAVEPOINT " + name
	}
	return exec.Execute(ctx, sql, nil, executor.Options{})
}

func (h *Set) txRelease(ctx context.Context, raw json.RawMessage) (any, error) {
	request, err := decode[savepointParams](raw)
	if err != nil {
		return nil, err
	}
	if request.SessionID == "" {
		return nil, apperr.MissingSessionID("transaction.release")
	}
	name, err := sanitize.Identifier(request.Name)
	if err != nil {
		return nil, err
	}

	exec, err := h.sessions.Get(request.SessionID)
	if err != nil {
		return nil, err
	}
	return exec.Execute(ctx, "RELEASE SAVEPOINT "+name, nil, executor.Options{})
}

type sessionListing struct {
	SessionID string `json:"session_id"`
	IdleTime  string `json:"idle_time"`
	ExpiresIn string `json:"expires_in"`
}

func (h *Set) txList(_ context.Context, _ json.RawMessage) (any, error) {
	infos := h.sessions.List()
	listings := make([]sessionListing, 0, len(infos))
	for _, info := range infos {
		listings = append(listings, sessionListing{
			SessionID: info.ID,
			IdleTime:  humandur.Format(info.IdleTime),
			ExpiresIn: humandur.Format(info.ExpiresIn),
		})
	}
	return map[string]any{"sessions": listings, "count": len(listings)}, nil
}
