package rpc

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"mosaico/internal/mosaicoerr"
	"mosaico/internal/planner"
	"mosaico/internal/queryfilter"
)

// actionRequest is the action envelope's request side: a name selecting
// the dispatch table entry, and an action-specific JSON body.
type actionRequest struct {
	Name string          `json:"name"`
	Body json.RawMessage `json:"body"`
}

// actionResponse is the envelope's response side, tagged with the action
// name it answers.
type actionResponse struct {
	Name     string `json:"name"`
	Response any    `json:"response"`
}

func (h *Handlers) handleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, mosaicoerr.Newf(mosaicoerr.UnsupportedDescriptor, "decode action envelope: %v", err))
		return
	}

	action, ok := actionTable[req.Name]
	if !ok {
		writeError(w, h.logger, mosaicoerr.Newf(mosaicoerr.UnsupportedOperation, "unknown action %q", req.Name))
		return
	}

	resp, err := action(h, r.Context(), req.Body)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Name: req.Name, Response: resp})
}

type actionFunc func(h *Handlers, ctx context.Context, body json.RawMessage) (any, error)

var actionTable = map[string]actionFunc{
	"sequence_create":      (*Handlers).actionSequenceCreate,
	"sequence_delete":      (*Handlers).actionSequenceDelete,
	"sequence_lock":        (*Handlers).actionSequenceLock,
	"sequence_list":        (*Handlers).actionSequenceList,
	"sequence_metadata":    (*Handlers).actionSequenceMetadata,
	"sequence_system_info": (*Handlers).actionSequenceSystemInfo,
	"sequence_notify_list": (*Handlers).actionSequenceNotifyList,

	"topic_create":      (*Handlers).actionTopicCreate,
	"topic_delete":      (*Handlers).actionTopicDelete,
	"topic_lock":        (*Handlers).actionTopicLock,
	"topic_update":      (*Handlers).actionTopicUpdate,
	"topic_metadata":    (*Handlers).actionTopicMetadata,
	"topic_notify_list": (*Handlers).actionTopicNotifyList,

	"layer_create": (*Handlers).actionLayerCreate,
	"layer_get":    (*Handlers).actionLayerGet,
	"layer_list":   (*Handlers).actionLayerList,
	"layer_update": (*Handlers).actionLayerUpdate,
	"layer_delete": (*Handlers).actionLayerDelete,

	"query": (*Handlers).actionQuery,
}

func decodeBody[T any](body json.RawMessage) (T, error) {
	var v T
	if len(body) == 0 {
		return v, nil
	}
	err := json.Unmarshal(body, &v)
	return v, err
}

// --- sequence actions ---

type sequenceNameRequest struct {
	Name string `json:"name"`
}

type createSequenceRequest struct {
	Name         string          `json:"name"`
	UserMetadata json.RawMessage `json:"user_metadata"`
}

func (h *Handlers) actionSequenceCreate(ctx context.Context, body json.RawMessage) (any, error) {
	req, err := decodeBody[createSequenceRequest](body)
	if err != nil {
		return nil, mosaicoerr.Newf(mosaicoerr.UnsupportedDescriptor, "decode sequence_create body: %v", err)
	}
	seq, err := h.sequenceFacade(req.Name).Create(ctx, req.UserMetadata)
	if err != nil {
		return nil, err
	}
	return seq, nil
}

func (h *Handlers) actionSequenceDelete(ctx context.Context, body json.RawMessage) (any, error) {
	req, err := decodeBody[sequenceNameRequest](body)
	if err != nil {
		return nil, mosaicoerr.Newf(mosaicoerr.UnsupportedDescriptor, "decode sequence_delete body: %v", err)
	}
	if err := h.sequenceFacade(req.Name).Delete(ctx); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

func (h *Handlers) actionSequenceLock(ctx context.Context, body json.RawMessage) (any, error) {
	req, err := decodeBody[sequenceNameRequest](body)
	if err != nil {
		return nil, mosaicoerr.Newf(mosaicoerr.UnsupportedDescriptor, "decode sequence_lock body: %v", err)
	}
	if err := h.sequenceFacade(req.Name).Lock(ctx); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

func (h *Handlers) actionSequenceList(ctx context.Context, body json.RawMessage) (any, error) {
	out, err := h.repo.ListSequences(ctx)
	if err != nil {
		return nil, mosaicoerr.New(mosaicoerr.Internal, err)
	}
	return out, nil
}

func (h *Handlers) actionSequenceMetadata(ctx context.Context, body json.RawMessage) (any, error) {
	req, err := decodeBody[sequenceNameRequest](body)
	if err != nil {
		return nil, mosaicoerr.Newf(mosaicoerr.UnsupportedDescriptor, "decode sequence_metadata body: %v", err)
	}
	return h.sequenceFacade(req.Name).Metadata(ctx)
}

func (h *Handlers) actionSequenceSystemInfo(ctx context.Context, body json.RawMessage) (any, error) {
	req, err := decodeBody[sequenceNameRequest](body)
	if err != nil {
		return nil, mosaicoerr.Newf(mosaicoerr.UnsupportedDescriptor, "decode sequence_system_info body: %v", err)
	}
	return h.sequenceFacade(req.Name).SystemInfo(ctx)
}

func (h *Handlers) actionSequenceNotifyList(ctx context.Context, body json.RawMessage) (any, error) {
	req, err := decodeBody[sequenceNameRequest](body)
	if err != nil {
		return nil, mosaicoerr.Newf(mosaicoerr.UnsupportedDescriptor, "decode sequence_notify_list body: %v", err)
	}
	return h.sequenceFacade(req.Name).NotifyList(ctx)
}

// --- topic actions ---

type topicNameRequest struct {
	Name string `json:"name"`
}

type createTopicRequest struct {
	Name                string          `json:"name"`
	SequenceUUID        uuid.UUID       `json:"sequence_uuid"`
	SerializationFormat string          `json:"serialization_format"`
	OntologyTag         string          `json:"ontology_tag"`
	UserMetadata        json.RawMessage `json:"user_metadata"`
}

func (h *Handlers) actionTopicCreate(ctx context.Context, body json.RawMessage) (any, error) {
	req, err := decodeBody[createTopicRequest](body)
	if err != nil {
		return nil, mosaicoerr.Newf(mosaicoerr.UnsupportedDescriptor, "decode topic_create body: %v", err)
	}
	topic, err := h.topicFacade(req.Name).Create(ctx, req.SequenceUUID, req.SerializationFormat, req.OntologyTag, req.UserMetadata)
	if err != nil {
		return nil, err
	}
	return topic, nil
}

func (h *Handlers) actionTopicDelete(ctx context.Context, body json.RawMessage) (any, error) {
	req, err := decodeBody[topicNameRequest](body)
	if err != nil {
		return nil, mosaicoerr.Newf(mosaicoerr.UnsupportedDescriptor, "decode topic_delete body: %v", err)
	}
	if err := h.topicFacade(req.Name).Delete(ctx); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

func (h *Handlers) actionTopicLock(ctx context.Context, body json.RawMessage) (any, error) {
	req, err := decodeBody[topicNameRequest](body)
	if err != nil {
		return nil, mosaicoerr.Newf(mosaicoerr.UnsupportedDescriptor, "decode topic_lock body: %v", err)
	}
	if err := h.topicFacade(req.Name).Lock(ctx); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

type updateTopicRequest struct {
	Name                string          `json:"name"`
	SerializationFormat string          `json:"serialization_format"`
	OntologyTag         string          `json:"ontology_tag"`
	UserMetadata        json.RawMessage `json:"user_metadata"`
}

func (h *Handlers) actionTopicUpdate(ctx context.Context, body json.RawMessage) (any, error) {
	req, err := decodeBody[updateTopicRequest](body)
	if err != nil {
		return nil, mosaicoerr.Newf(mosaicoerr.UnsupportedDescriptor, "decode topic_update body: %v", err)
	}
	return h.topicFacade(req.Name).Update(ctx, req.SerializationFormat, req.OntologyTag, req.UserMetadata)
}

func (h *Handlers) actionTopicMetadata(ctx context.Context, body json.RawMessage) (any, error) {
	req, err := decodeBody[topicNameRequest](body)
	if err != nil {
		return nil, mosaicoerr.Newf(mosaicoerr.UnsupportedDescriptor, "decode topic_metadata body: %v", err)
	}
	return h.topicFacade(req.Name).Metadata(ctx)
}

func (h *Handlers) actionTopicNotifyList(ctx context.Context, body json.RawMessage) (any, error) {
	req, err := decodeBody[topicNameRequest](body)
	if err != nil {
		return nil, mosaicoerr.Newf(mosaicoerr.UnsupportedDescriptor, "decode topic_notify_list body: %v", err)
	}
	return h.topicFacade(req.Name).NotifyList(ctx)
}

// --- layer actions ---

type createLayerRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handlers) actionLayerCreate(ctx context.Context, body json.RawMessage) (any, error) {
	req, err := decodeBody[createLayerRequest](body)
	if err != nil {
		return nil, mosaicoerr.Newf(mosaicoerr.UnsupportedDescriptor, "decode layer_create body: %v", err)
	}
	return h.layerFacade().Create(ctx, req.Name, req.Description)
}

type layerNameRequest struct {
	Name string `json:"name"`
}

func (h *Handlers) actionLayerGet(ctx context.Context, body json.RawMessage) (any, error) {
	req, err := decodeBody[layerNameRequest](body)
	if err != nil {
		return nil, mosaicoerr.Newf(mosaicoerr.UnsupportedDescriptor, "decode layer_get body: %v", err)
	}
	return h.layerFacade().Get(ctx, req.Name)
}

func (h *Handlers) actionLayerList(ctx context.Context, body json.RawMessage) (any, error) {
	return h.layerFacade().List(ctx)
}

func (h *Handlers) actionLayerUpdate(ctx context.Context, body json.RawMessage) (any, error) {
	req, err := decodeBody[createLayerRequest](body)
	if err != nil {
		return nil, mosaicoerr.Newf(mosaicoerr.UnsupportedDescriptor, "decode layer_update body: %v", err)
	}
	return h.layerFacade().Update(ctx, req.Name, req.Description)
}

func (h *Handlers) actionLayerDelete(ctx context.Context, body json.RawMessage) (any, error) {
	req, err := decodeBody[layerNameRequest](body)
	if err != nil {
		return nil, mosaicoerr.Newf(mosaicoerr.UnsupportedDescriptor, "decode layer_delete body: %v", err)
	}
	if err := h.layerFacade().Delete(ctx, req.Name); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

// --- query action ---

type queryResponse struct {
	Sequences []planner.SequenceResult `json:"sequences"`
}

func (h *Handlers) actionQuery(ctx context.Context, body json.RawMessage) (any, error) {
	filter, err := queryfilter.DecodeFilter(body)
	if err != nil {
		return nil, mosaicoerr.Newf(mosaicoerr.UnsupportedDescriptor, "decode query filter: %v", err)
	}
	results, err := h.plan.Execute(ctx, filter)
	if err != nil {
		return nil, err
	}
	return queryResponse{Sequences: results}, nil
}
