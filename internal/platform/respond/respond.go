// Copyright (c) 2026 PgGate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package respond provides standardized helpers for writing HTTP JSON responses.

It guarantees that every response leaving the HTTP binding has a consistent
shape: successes carry the dispatch envelope verbatim, failures carry the
error taxonomy fields (error, code, sqlstate, details).
*/
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/taibuivan/pggate/internal/platform/apperr"
	"github.com/taibuivan/pggate/internal/platform/ctxutil"
)

// ErrorEnvelope is the JSON shape of every error response.
type ErrorEnvelope struct {
	Error    string              `json:"error"`
	Code     string              `json:"code"`
	SQLState string              `json:"sqlstate,omitempty"`
	Details  []apperr.FieldError `json:"details,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Headers are already out; all we can do is log.
		ctxutil.GetLogger(r.Context()).Error("response encoding failed", slog.Any("error", err))
	}
}

// OK writes a 200 response with the given payload.
func OK(w http.ResponseWriter, r *http.Request, payload any) {
	JSON(w, r, http.StatusOK, payload)
}

// Error writes the error response for err.
//
// AppErrors map to their declared status and taxonomy fields. Anything else
// is treated as an internal error: logged with its cause, returned opaque.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	appError := apperr.As(err)
	if appError == nil {
		appError = apperr.Internal(err)
	}

	logger := ctxutil.GetLogger(r.Context())
	if appError.HTTPStatus >= http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String("code", appError.Code),
			slog.Any("cause", appError.Cause),
		)
	}

	JSON(w, r, appError.HTTPStatus, ErrorEnvelope{
		Error:    appError.Message,
		Code:     appError.Code,
		SQLState: appError.SQLState,
		Details:  appError.Details,
	})
}
