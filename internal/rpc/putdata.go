package rpc

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/apache/arrow-go/v18/arrow/ipc"

	"mosaico/internal/chunkio"
	"mosaico/internal/colstats"
	"mosaico/internal/locator"
	"mosaico/internal/mosaicoerr"
)

// putDescriptor is the first frame of a put-data stream: which topic to
// write into and the key authorizing the write.
type putDescriptor struct {
	Topic struct {
		Name string `json:"name"`
		Key  string `json:"key"`
	} `json:"topic"`
}

// putResponse is returned once the stream has been fully ingested and the
// topic locked.
type putResponse struct {
	ChunksWritten int `json:"chunks_written"`
}

// handlePutData reads a framed request body: a 4-byte big-endian length
// prefix, that many bytes of JSON descriptor, then a standard Arrow IPC
// stream (schema message followed by record batch messages) for the rest
// of the body. Every batch is written through the topic's ChunkedWriter;
// on EOF the writer is finalized and the topic locked.
func (h *Handlers) handlePutData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	descriptor, err := readPutDescriptor(r.Body)
	if err != nil {
		writeError(w, h.logger, mosaicoerr.Newf(mosaicoerr.UnsupportedDescriptor, "read put-data descriptor: %v", err))
		return
	}

	name := locator.Sanitize(descriptor.Topic.Name)
	topic, err := h.repo.GetTopicByName(ctx, name)
	if err != nil {
		writeError(w, h.logger, mosaicoerr.New(mosaicoerr.Internal, err))
		return
	}
	if topic == nil {
		writeError(w, h.logger, mosaicoerr.Newf(mosaicoerr.NotFound, "topic %q not found", name))
		return
	}

	keyTopicID, err := h.tokens.Verify(descriptor.Topic.Key)
	if err != nil || keyTopicID != topic.UUID {
		writeError(w, h.logger, mosaicoerr.Newf(mosaicoerr.BadKey, "key does not authorize topic %q", name))
		return
	}
	if topic.Locked {
		writeError(w, h.logger, mosaicoerr.Newf(mosaicoerr.TopicLocked, "topic %q is locked", name))
		return
	}

	reader, err := ipc.NewReader(r.Body)
	if err != nil {
		writeError(w, h.logger, mosaicoerr.Newf(mosaicoerr.UnsupportedDescriptor, "open arrow ipc stream: %v", err))
		return
	}
	defer reader.Release()

	schema := reader.Schema()
	if err := colstats.CheckSchema(schema); err != nil {
		code := mosaicoerr.Internal
		switch {
		case errors.Is(err, colstats.ErrMissingTimestamp):
			code = mosaicoerr.MissingTimestamp
		case errors.Is(err, colstats.ErrWrongTimestampType):
			code = mosaicoerr.WrongTimestampType
		}
		writeError(w, h.logger, mosaicoerr.New(code, err))
		return
	}

	format, err := chunkio.ParseFormat(topic.SerializationFormat)
	if err != nil {
		writeError(w, h.logger, mosaicoerr.New(mosaicoerr.Internal, err))
		return
	}

	writer, err := h.topicFacade(name).Writer(ctx, format, h.maxChk)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	sawBatch := false
	for reader.Next() {
		rec := reader.Record()
		if rec.NumRows() == 0 {
			writeError(w, h.logger, mosaicoerr.Newf(mosaicoerr.StreamError, "empty record batch"))
			return
		}
		sawBatch = true
		if err := writer.Write(ctx, rec); err != nil {
			writeError(w, h.logger, mosaicoerr.New(mosaicoerr.Internal, fmt.Errorf("write batch to topic %q: %w", name, err)))
			return
		}
	}
	if err := reader.Err(); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, h.logger, mosaicoerr.Newf(mosaicoerr.StreamError, "arrow ipc stream: %v", err))
		return
	}
	if !sawBatch {
		writeError(w, h.logger, mosaicoerr.Newf(mosaicoerr.StreamError, "put-data stream carried no record batches"))
		return
	}

	if err := writer.Finalize(ctx); err != nil {
		writeError(w, h.logger, mosaicoerr.New(mosaicoerr.Internal, fmt.Errorf("finalize chunk writer for topic %q: %w", name, err)))
		return
	}

	if err := h.topicFacade(name).Lock(ctx); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, putResponse{ChunksWritten: writer.ChunkCount()})
}

func readPutDescriptor(body io.Reader) (*putDescriptor, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(body, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("read descriptor length: %w", err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n == 0 || n > 1<<20 {
		return nil, fmt.Errorf("descriptor length %d out of range", n)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(body, buf); err != nil {
		return nil, fmt.Errorf("read descriptor body: %w", err)
	}

	var d putDescriptor
	if err := json.Unmarshal(buf, &d); err != nil {
		return nil, fmt.Errorf("decode descriptor json: %w", err)
	}
	if d.Topic.Name == "" {
		return nil, fmt.Errorf("descriptor missing topic.name")
	}
	if d.Topic.Key == "" {
		return nil, fmt.Errorf("descriptor missing topic.key")
	}
	return &d, nil
}
