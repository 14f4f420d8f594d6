package rpc_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"

	"mosaico/internal/auth"
	"mosaico/internal/metadata"
	"mosaico/internal/objectstore"
	"mosaico/internal/rpc"
)

func newTestHandlers(t *testing.T) (*rpc.Handlers, *metadata.Repository, *auth.TokenService) {
	t.Helper()
	ctx := context.Background()

	repo, err := metadata.NewRepository(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	store, err := objectstore.NewFilesystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemStore: %v", err)
	}

	tokens := auth.NewTokenService([]byte("test-secret-key-32-bytes-long!!"))

	h := rpc.New(rpc.Config{
		Repo:               repo,
		Store:              store,
		Tokens:             tokens,
		TargetMessageBytes: 1 << 20,
		MaxChunkBytes:      1 << 20,
	})
	return h, repo, tokens
}

func doAction(t *testing.T, mux *http.ServeMux, name string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal action body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/action", bytes.NewReader(rawAction(t, name, raw)))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func rawAction(t *testing.T, name string, body json.RawMessage) []byte {
	t.Helper()
	buf, err := json.Marshal(map[string]any{"name": name, "body": body})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return buf
}

type sequenceResponse struct {
	UUID string
}

func createSequence(t *testing.T, mux *http.ServeMux, name string) string {
	t.Helper()
	rec := doAction(t, mux, "sequence_create", map[string]any{"name": name})
	if rec.Code != http.StatusOK {
		t.Fatalf("sequence_create: status %d, body %s", rec.Code, rec.Body.String())
	}
	var resp sequenceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode sequence_create response: %v (body %s)", err, rec.Body.String())
	}
	return resp.UUID
}

type topicResponse struct {
	UUID string
}

func createTopic(t *testing.T, mux *http.ServeMux, seqUUID, fullName string) string {
	t.Helper()
	rec := doAction(t, mux, "topic_create", map[string]any{
		"sequence_uuid":        seqUUID,
		"name":                 fullName,
		"serialization_format": "default",
		"ontology_tag":         "test",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("topic_create: status %d, body %s", rec.Code, rec.Body.String())
	}
	var resp topicResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode topic_create response: %v (body %s)", err, rec.Body.String())
	}
	return resp.UUID
}

func buildIPCBatch(t *testing.T) []byte {
	t.Helper()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "timestamp", Type: arrow.PrimitiveTypes.Int64},
		{Name: "value", Type: arrow.PrimitiveTypes.Float64},
	}, nil)

	mem := memory.NewGoAllocator()
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	b.Field(0).(*array.Int64Builder).AppendValues([]int64{1, 2, 3}, nil)
	b.Field(1).(*array.Float64Builder).AppendValues([]float64{1.5, 2.5, 3.5}, nil)
	rec := b.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(schema))
	if err := w.Write(rec); err != nil {
		t.Fatalf("write ipc batch: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close ipc writer: %v", err)
	}
	return buf.Bytes()
}

func framedPutBody(t *testing.T, topicName, key string) []byte {
	t.Helper()
	descriptor, err := json.Marshal(map[string]any{
		"topic": map[string]string{"name": topicName, "key": key},
	})
	if err != nil {
		t.Fatalf("marshal descriptor: %v", err)
	}

	var buf bytes.Buffer
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(descriptor)))
	buf.Write(lenBuf[:])
	buf.Write(descriptor)
	buf.Write(buildIPCBatch(t))
	return buf.Bytes()
}

func TestPutDataGetDataRoundTrip(t *testing.T) {
	h, repo, tokens := newTestHandlers(t)
	mux := http.NewServeMux()
	h.Mount(mux)

	seqUUID := createSequence(t, mux, "fleet")
	topicUUID := createTopic(t, mux, seqUUID, "fleet/readings")

	key, err := tokens.Issue(uuid.MustParse(topicUUID))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	putReq := httptest.NewRequest(http.MethodPost, "/v1/put-data", bytes.NewReader(framedPutBody(t, "fleet/readings", key)))
	putRec := httptest.NewRecorder()
	mux.ServeHTTP(putRec, putReq)
	if putRec.Code != http.StatusOK {
		t.Fatalf("put-data: status %d, body %s", putRec.Code, putRec.Body.String())
	}

	topic, err := repo.GetTopicByName(context.Background(), "fleet/readings")
	if err != nil {
		t.Fatalf("GetTopicByName: %v", err)
	}
	if topic == nil || !topic.Locked {
		t.Fatal("expected topic to be locked after put-data")
	}

	getReq := httptest.NewRequest(http.MethodGet, "/v1/get-data?ticket=fleet/readings", nil)
	getRec := httptest.NewRecorder()
	mux.ServeHTTP(getRec, getReq)
	if getRec.Code != http.StatusOK {
		t.Fatalf("get-data: status %d, body %s", getRec.Code, getRec.Body.String())
	}

	reader, err := ipc.NewReader(getRec.Body)
	if err != nil {
		t.Fatalf("open ipc reader on response: %v", err)
	}
	defer reader.Release()

	rows := int64(0)
	for reader.Next() {
		rows += reader.Record().NumRows()
	}
	if err := reader.Err(); err != nil {
		t.Fatalf("read response stream: %v", err)
	}
	if rows != 3 {
		t.Fatalf("got %d rows back, want 3", rows)
	}
}

func TestPutDataRejectsBadKey(t *testing.T) {
	h, _, tokens := newTestHandlers(t)
	mux := http.NewServeMux()
	h.Mount(mux)

	seqUUID := createSequence(t, mux, "fleet")
	createTopic(t, mux, seqUUID, "fleet/readings")

	wrongKey, err := tokens.Issue(uuid.New())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/put-data", bytes.NewReader(framedPutBody(t, "fleet/readings", wrongKey)))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusUnauthorized, rec.Body.String())
	}
}

func TestPutDataRejectsEmptyStream(t *testing.T) {
	h, _, tokens := newTestHandlers(t)
	mux := http.NewServeMux()
	h.Mount(mux)

	seqUUID := createSequence(t, mux, "fleet")
	topicUUID := createTopic(t, mux, seqUUID, "fleet/readings")
	key, err := tokens.Issue(uuid.MustParse(topicUUID))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	descriptor, err := json.Marshal(map[string]any{
		"topic": map[string]string{"name": "fleet/readings", "key": key},
	})
	if err != nil {
		t.Fatalf("marshal descriptor: %v", err)
	}
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "timestamp", Type: arrow.PrimitiveTypes.Int64},
	}, nil)
	var ipcBuf bytes.Buffer
	w := ipc.NewWriter(&ipcBuf, ipc.WithSchema(schema))
	if err := w.Close(); err != nil {
		t.Fatalf("close empty ipc writer: %v", err)
	}

	var buf bytes.Buffer
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(descriptor)))
	buf.Write(lenBuf[:])
	buf.Write(descriptor)
	buf.Write(ipcBuf.Bytes())

	req := httptest.NewRequest(http.MethodPost, "/v1/put-data", bytes.NewReader(buf.Bytes()))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusBadRequest, rec.Body.String())
	}
}

func TestListFlights(t *testing.T) {
	h, _, _ := newTestHandlers(t)
	mux := http.NewServeMux()
	h.Mount(mux)

	createSequence(t, mux, "fleet-a")
	createSequence(t, mux, "fleet-b")

	req := httptest.NewRequest(http.MethodGet, "/v1/list-flights", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	dec := json.NewDecoder(rec.Body)
	tickets := map[string]bool{}
	for dec.More() {
		var s struct {
			Ticket string `json:"ticket"`
		}
		if err := dec.Decode(&s); err != nil {
			t.Fatalf("decode ndjson line: %v", err)
		}
		tickets[s.Ticket] = true
	}
	if !tickets["fleet-a"] || !tickets["fleet-b"] {
		t.Fatalf("got tickets %v, want fleet-a and fleet-b", tickets)
	}
}

func TestListFlightsRejectsNarrowCriteria(t *testing.T) {
	h, _, _ := newTestHandlers(t)
	mux := http.NewServeMux()
	h.Mount(mux)

	req := httptest.NewRequest(http.MethodGet, "/v1/list-flights?criteria=fleet-a", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestGetInfoTopic(t *testing.T) {
	h, _, tokens := newTestHandlers(t)
	mux := http.NewServeMux()
	h.Mount(mux)

	seqUUID := createSequence(t, mux, "fleet")
	topicUUID := createTopic(t, mux, seqUUID, "fleet/readings")

	key, err := tokens.Issue(uuid.MustParse(topicUUID))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	putReq := httptest.NewRequest(http.MethodPost, "/v1/put-data", bytes.NewReader(framedPutBody(t, "fleet/readings", key)))
	putRec := httptest.NewRecorder()
	mux.ServeHTTP(putRec, putReq)
	if putRec.Code != http.StatusOK {
		t.Fatalf("put-data: status %d, body %s", putRec.Code, putRec.Body.String())
	}

	body, err := json.Marshal(map[string]string{"descriptor": "fleet/readings"})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/get-info", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var info struct {
		Endpoints []struct {
			Ticket string `json:"ticket"`
		} `json:"endpoints"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode get-info response: %v", err)
	}
	if len(info.Endpoints) != 1 || info.Endpoints[0].Ticket != "fleet/readings" {
		t.Fatalf("got endpoints %+v, want single fleet/readings ticket", info.Endpoints)
	}
}

func TestGetInfoNotFound(t *testing.T) {
	h, _, _ := newTestHandlers(t)
	mux := http.NewServeMux()
	h.Mount(mux)

	body, err := json.Marshal(map[string]string{"descriptor": "nope"})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/get-info", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
