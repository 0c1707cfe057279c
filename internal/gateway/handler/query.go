// Copyright (c) 2026 PgGate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/taibuivan/pggate/internal/gateway/executor"
	"github.com/taibuivan/pggate/internal/platform/apperr"
	"github.com/taibuivan/pggate/internal/platform/validate"
)

/*
# Query Handlers

Parameterized SQL execution. sql and params travel as separate fields and are
bound positionally ($1, $2, …) by the driver; the gateway never interpolates
parameter values into SQL text.
*/

type queryParams struct {
	SessionID  string `json:"session_id"`
	Autocommit bool   `json:"autocommit"`
	SQL        string `json:"sql"`
	Params     []any  `json:"params"`
	TimeoutMS  int    `json:"timeout_ms"`
}

func (request queryParams) validate() error {
	var v validate.Validator
	return v.
		Required("sql", request.SQL).
		Custom("timeout_ms", request.TimeoutMS < 0, "Must not be negative").
		Err()
}

func (h *Set) queryRead(ctx context.Context, raw json.RawMessage) (any, error) {
	request, err := decode[queryParams](raw)
	if err != nil {
		return nil, err
	}
	if err := request.validate(); err != nil {
		return nil, err
	}

	exec, err := h.resolve(request.SessionID)
	if err != nil {
		return nil, err
	}
	return exec.Execute(ctx, request.SQL, request.Params, executor.Options{TimeoutMS: request.TimeoutMS})
}

// queryWrite is identical to queryRead at execution time; the difference is
// the write-intent gate the dispatcher applies before this handler runs.
func (h *Set) queryWrite(ctx context.Context, raw json.RawMessage) (any, error) {
	return h.queryRead(ctx, raw)
}

type explainParams struct {
	SessionID string `json:"session_id"`
	SQL       string `json:"sql"`
	Params    []any  `json:"params"`
	Analyze   bool   `json:"analyze"`
	Format    string `json:"format"`
	TimeoutMS int    `json:"timeout_ms"`
}

func (h *Set) queryExplain(ctx context.Context, raw json.RawMessage) (any, error) {
	request, err := decode[explainParams](raw)
	if err != nil {
		return nil, err
	}
	if request.Format == "" {
		request.Format = "text"
	}
	var v validate.Validator
	if err := v.
		Required("sql", request.SQL).
		OneOf("format", request.Format, "text", "json", "yaml", "xml").
		Custom("timeout_ms", request.TimeoutMS < 0, "Must not be negative").
		Err(); err != nil {
		return nil, err
	}

	exec, err := h.resolve(request.SessionID)
	if err != nil {
		return nil, err
	}

	options := []string{"FORMAT " + strings.ToUpper(request.Format)}
	if request.Analyze {
		// Caution: ANALYZE executes the statement, and on mutating SQL the
		// mutation is real. The caller owns that choice; a session lets it
		// be rolled back.
		options = append([]string{"ANALYZE"}, options...)
	}
	sql := "EXPLAIN (" + strings.Join(options, ", ") + ") " + request.SQL

	return exec.Execute(ctx, sql, request.Params, executor.Options{TimeoutMS: request.TimeoutMS})
}

type batchOperation struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

type batchParams struct {
	Operations []batchOperation `json:"operations"`
	TimeoutMS  int              `json:"timeout_ms"`
}

type batchResult struct {
	Committed bool               `json:"committed"`
	Results   []*executor.Result `json:"results"`
}

// queryTransaction runs a batch of statements inside one short-lived
// transaction on a dedicated connection. All-or-nothing: the first failure
// rolls everything back and reports the failing ordinal.
func (h *Set) queryTransaction(ctx context.Context, raw json.RawMessage) (any, error) {
	request, err := decode[batchParams](raw)
	if err != nil {
		return nil, err
	}
	var v validate.Validator
	v.NonEmptySlice("operations", len(request.Operations))
	v.Custom("timeout_ms", request.TimeoutMS < 0, "Must not be negative")
	for i, op := range request.Operations {
		v.Required(fmt.Sprintf("operations[%d].sql", i), op.SQL)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	// The batch never touches the session registry: the pinned connection
	// lives exactly as long as this call.
	exec, err := h.pool.DeriveSession(ctx)
	if err != nil {
		return nil, err
	}

	abort := func(cause error, ordinal int) error {
		rollbackCtx, cancel := cleanupContext(ctx)
		defer cancel()
		_, _ = exec.Execute(rollbackCtx, "ROLLBACK", nil, executor.Options{})
		_ = exec.Close(rollbackCtx, true)

		if ae := apperr.As(cause); ae != nil {
			failed := *ae
			failed.Message = fmt.Sprintf("transaction batch failed at operation %d: %s", ordinal, ae.Message)
			failed.Details = append(failed.Details, apperr.FieldError{
				Field:   fmt.Sprintf("operations[%d]", ordinal),
				Message: ae.Message,
			})
			return &failed
		}
		return cause
	}

	if _, err := exec.Execute(ctx, "BEGIN", nil, executor.Options{}); err != nil {
		_ = exec.Close(ctx, true)
		return nil, err
	}

	results := make([]*executor.Result, 0, len(request.Operations))
	for i, op := range request.Operations {
		result, err := exec.Execute(ctx, op.SQL, op.Params, executor.Options{TimeoutMS: request.TimeoutMS})
		if err != nil {
			return nil, abort(err, i)
		}
		results = append(results, result)
	}

	if _, err := exec.Execute(ctx, "COMMIT", nil, executor.Options{}); err != nil {
		cleanupCtx, cancel := cleanupContext(ctx)
		_, _ = exec.Execute(cleanupCtx, "ROLLBACK", nil, executor.Options{})
		_ = exec.Close(cleanupCtx, true)
		cancel()
		return nil, err
	}
	if err := exec.Close(ctx, false); err != nil {
		h.log.Warn("batch connection release failed", "error", err)
	}

	return &batchResult{Committed: true, Results: results}, nil
}
