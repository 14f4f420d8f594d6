package rpc

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/apache/arrow-go/v18/arrow"

	"mosaico/internal/locator"
	"mosaico/internal/metadata"
	"mosaico/internal/mosaicoerr"
)

// flightEndpoint names the ticket a client must present to get-data to
// retrieve one resource's rows.
type flightEndpoint struct {
	Ticket string `json:"ticket"`
}

// flightInfo is the get-info response shape: a schema (empty for a
// sequence, the topic's Arrow schema for a topic) plus one endpoint per
// readable resource, and the resource's own metadata/properties.
type flightInfo struct {
	Schema    []arrowFieldInfo  `json:"schema"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Endpoints []flightEndpoint  `json:"endpoints"`
	UserMeta  json.RawMessage   `json:"user_metadata,omitempty"`
}

type arrowFieldInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

type getInfoRequest struct {
	Descriptor string `json:"descriptor"`
}

func (h *Handlers) handleGetInfo(w http.ResponseWriter, r *http.Request) {
	var req getInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, mosaicoerr.Newf(mosaicoerr.UnsupportedDescriptor, "decode get-info descriptor: %v", err))
		return
	}

	name := locator.Sanitize(req.Descriptor)
	if name == "" {
		writeError(w, h.logger, mosaicoerr.Newf(mosaicoerr.UnsupportedDescriptor, "descriptor must name exactly one resource"))
		return
	}

	info, err := h.resolveGetInfo(r.Context(), name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *Handlers) resolveGetInfo(ctx context.Context, name string) (*flightInfo, error) {
	if seq, err := h.repo.GetSequenceByName(ctx, name); err != nil {
		return nil, mosaicoerr.New(mosaicoerr.Internal, err)
	} else if seq != nil {
		return h.sequenceFlightInfo(ctx, name)
	}

	if topic, err := h.repo.GetTopicByName(ctx, name); err != nil {
		return nil, mosaicoerr.New(mosaicoerr.Internal, err)
	} else if topic != nil {
		return h.topicFlightInfo(ctx, topic)
	}

	return nil, mosaicoerr.Newf(mosaicoerr.NotFound, "resource %q not found", name)
}

func arrowSchemaInfo(schema *arrow.Schema) []arrowFieldInfo {
	if schema == nil {
		return nil
	}
	fields := schema.Fields()
	out := make([]arrowFieldInfo, len(fields))
	for i, f := range fields {
		out[i] = arrowFieldInfo{Name: f.Name, Type: f.Type.String(), Nullable: f.Nullable}
	}
	return out
}

func (h *Handlers) sequenceFlightInfo(ctx context.Context, name string) (*flightInfo, error) {
	topics, err := h.sequenceFacade(name).TopicList(ctx)
	if err != nil {
		return nil, err
	}

	endpoints := make([]flightEndpoint, len(topics))
	for i, t := range topics {
		endpoints[i] = flightEndpoint{Ticket: t.Name}
	}
	return &flightInfo{Schema: nil, Endpoints: endpoints}, nil
}

func (h *Handlers) topicFlightInfo(ctx context.Context, topic *metadata.Topic) (*flightInfo, error) {
	tf := h.topicFacade(topic.Name)

	schema, err := tf.ArrowSchema(ctx)
	if err != nil {
		return nil, err
	}
	userMeta, err := tf.Metadata(ctx)
	if err != nil {
		return nil, err
	}

	return &flightInfo{
		Schema: arrowSchemaInfo(schema),
		Metadata: map[string]string{
			"ontology_tag":         topic.OntologyTag,
			"serialization_format": topic.SerializationFormat,
		},
		Endpoints: []flightEndpoint{{Ticket: topic.Name}},
		UserMeta:  userMeta,
	}, nil
}
