// Package rpc implements the five HTTP endpoints a mosaico server exposes:
// action dispatch, get-info, get-data, put-data, and list-flights. Each
// handler is a thin translation layer over internal/facade,
// internal/planner, and internal/columnar — it decodes the wire envelope,
// calls the core, and maps internal/mosaicoerr codes to HTTP status codes.
package rpc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"mosaico/internal/mosaicoerr"
)

// statusForCode maps the closed mosaicoerr.Code taxonomy to an HTTP status.
// Codes not in this table (there are none today, but the switch is closed
// deliberately) fall through to 500.
func statusForCode(code mosaicoerr.Code) int {
	switch code {
	case mosaicoerr.NotFound:
		return http.StatusNotFound
	case mosaicoerr.AlreadyExists, mosaicoerr.SequenceLocked, mosaicoerr.TopicLocked, mosaicoerr.TopicUnlocked:
		return http.StatusConflict
	case mosaicoerr.Unauthorized:
		return http.StatusForbidden
	case mosaicoerr.BadKey:
		return http.StatusUnauthorized
	case mosaicoerr.BadTicket, mosaicoerr.UnsupportedDescriptor, mosaicoerr.UnsupportedOperation,
		mosaicoerr.EmptyRange, mosaicoerr.BadField, mosaicoerr.StreamError:
		return http.StatusBadRequest
	case mosaicoerr.MissingTimestamp, mosaicoerr.WrongTimestampType:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// errorResponse is the JSON body written for any handler error.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError classifies err and writes the matching status + JSON body. A
// plain error not wrapping *mosaicoerr.Error is treated as internal,
// mirroring the facades' own never-swallow policy: nothing here invents a
// more specific code than the core actually returned.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var merr *mosaicoerr.Error
	code := mosaicoerr.Internal
	if errors.As(err, &merr) {
		code = merr.Code
	}

	status := statusForCode(code)
	if status == http.StatusInternalServerError {
		logger.Error("rpc handler error", "code", code, "err", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Code: string(code), Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
