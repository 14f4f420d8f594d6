package rpc

import (
	"encoding/json"
	"net/http"

	"mosaico/internal/mosaicoerr"
)

// flightSummary is the minimal per-sequence object list-flights streams.
type flightSummary struct {
	Ticket string `json:"ticket"`
}

// handleListFlights only accepts the root-level criterion ("" or "/"):
// mosaico has no flat namespace under which narrower criteria would mean
// anything, so anything else is rejected outright rather than silently
// ignored.
func (h *Handlers) handleListFlights(w http.ResponseWriter, r *http.Request) {
	criteria := r.URL.Query().Get("criteria")
	if criteria != "" && criteria != "/" {
		writeError(w, h.logger, mosaicoerr.Newf(mosaicoerr.UnsupportedDescriptor, "unsupported list-flights criteria %q", criteria))
		return
	}

	sequences, err := h.repo.ListSequences(r.Context())
	if err != nil {
		writeError(w, h.logger, mosaicoerr.New(mosaicoerr.Internal, err))
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	enc := json.NewEncoder(w)
	for _, seq := range sequences {
		if err := enc.Encode(flightSummary{Ticket: seq.Name}); err != nil {
			h.logger.Error("list-flights write failed", "err", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}
