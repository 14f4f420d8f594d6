package rpc

import (
	"net/http"

	"github.com/apache/arrow-go/v18/arrow/ipc"

	"mosaico/internal/chunkio"
	"mosaico/internal/locator"
	"mosaico/internal/mosaicoerr"
)

// handleGetData streams a topic's rows as a standard Arrow IPC stream
// (schema message followed by record batch messages) directly in the
// HTTP response body. Repartitioning is always on here, matching §4.10:
// a get-data reader wants message sizes close to the configured target,
// not whatever batch boundaries happened to land at write time.
func (h *Handlers) handleGetData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ticket := locator.Sanitize(r.URL.Query().Get("ticket"))
	if ticket == "" {
		writeError(w, h.logger, mosaicoerr.Newf(mosaicoerr.BadTicket, "ticket must name a topic"))
		return
	}

	topic, err := h.repo.GetTopicByName(ctx, ticket)
	if err != nil {
		writeError(w, h.logger, mosaicoerr.New(mosaicoerr.Internal, err))
		return
	}
	if topic == nil {
		writeError(w, h.logger, mosaicoerr.Newf(mosaicoerr.BadTicket, "ticket %q does not name a topic", ticket))
		return
	}

	format, err := chunkio.ParseFormat(topic.SerializationFormat)
	if err != nil {
		writeError(w, h.logger, mosaicoerr.New(mosaicoerr.Internal, err))
		return
	}

	loc := locator.New(locator.Topic, ticket)
	result, err := h.engine().Read(ctx, loc.Name(), format, true, h.target)
	if err != nil {
		writeError(w, h.logger, mosaicoerr.New(mosaicoerr.Internal, err))
		return
	}

	schema := result.SchemaWithMetadata(map[string]string{
		"ontology_tag":         topic.OntologyTag,
		"serialization_format": topic.SerializationFormat,
	})

	w.Header().Set("Content-Type", "application/vnd.apache.arrow.stream")
	writer := ipc.NewWriter(w, ipc.WithSchema(schema))
	defer writer.Close()

	for rec, err := range result.Stream(ctx) {
		if err != nil {
			h.logger.Error("get-data stream aborted", "ticket", ticket, "err", err)
			return
		}
		if err := writer.Write(rec); err != nil {
			h.logger.Error("get-data write failed", "ticket", ticket, "err", err)
			return
		}
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}
