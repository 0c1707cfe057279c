// Copyright (c) 2026 PgGate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"encoding/json"
	"net/http"

	"github.com/taibuivan/pggate/internal/gateway"
	"github.com/taibuivan/pggate/internal/gateway/dispatch"
	"github.com/taibuivan/pggate/internal/platform/respond"
	"github.com/taibuivan/pggate/internal/platform/validate"
	"github.com/taibuivan/pggate/pkg/humandur"
)

// maxRequestBody caps the dispatch request body. Statement parameters ride in
// the body, so the cap is generous but not unlimited.
const maxRequestBody = 4 << 20

// newDispatchHandler adapts the gateway core to POST /v1/dispatch.
func newDispatchHandler(core *gateway.Gateway) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		var req dispatch.Request
		decoder := json.NewDecoder(http.MaxBytesReader(writer, request.Body, maxRequestBody))
		if err := decoder.Decode(&req); err != nil {
			respond.Error(writer, request, validate.ErrInvalidJSON)
			return
		}

		var v validate.Validator
		if err := v.
			Required("tool", req.Tool).
			Required("action", req.Action).
			Err(); err != nil {
			respond.Error(writer, request, err)
			return
		}

		envelope, err := core.Dispatch(request.Context(), req)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}
		respond.OK(writer, request, envelope)
	}
}

// newSessionsHandler exposes the live session registry for operators.
func newSessionsHandler(core *gateway.Gateway) http.HandlerFunc {
	type listing struct {
		SessionID string `json:"session_id"`
		IdleTime  string `json:"idle_time"`
		ExpiresIn string `json:"expires_in"`
	}

	return func(writer http.ResponseWriter, request *http.Request) {
		infos := core.Sessions().List()
		listings := make([]listing, 0, len(infos))
		for _, info := range infos {
			listings = append(listings, listing{
				SessionID: info.ID,
				IdleTime:  humandur.Format(info.IdleTime),
				ExpiresIn: humandur.Format(info.ExpiresIn),
			})
		}
		respond.OK(writer, request, map[string]any{
			"sessions": listings,
			"count":    len(listings),
		})
	}
}
