// Package facade enforces the transactional boundaries that raw SQL
// helpers in internal/metadata cannot: lock-state invariants, parent/child
// authorization, and the paired metadata-store-commit / object-store-write
// sequencing for each resource's lifecycle.
//
// Grounded on the source's repo/facades/facade_{sequence,topic,chunk,layer}.rs:
// each facade owns a (metadata store, object store) pair plus a resource
// locator, and every write path opens a metadata.Tx at entry and commits at
// exit. Metadata blobs are written only after the transaction has committed
// successfully, mirroring the source's "rollback reverts the row; the blob
// is written only on the success path" ordering. Chunk blobs are the
// exception: the chunked writer stores each one before the on-chunk-created
// callback commits its chunk row.
package facade

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time.Now for deterministic tests, following the
// teacher's chunk.AgePolicy injection pattern.
type Clock func() time.Time

func nowOrDefault(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// sequenceMetadataDoc is the JSON shape written to a sequence's
// metadata.json blob.
type sequenceMetadataDoc struct {
	Name         string          `json:"name"`
	UUID         string          `json:"uuid"`
	UserMetadata json.RawMessage `json:"user_metadata"`
}

// topicMetadataDoc is the JSON shape written to a topic's metadata.json
// blob: user metadata plus the three topic properties TopicFacade.Update
// can mutate together.
type topicMetadataDoc struct {
	Name                string          `json:"name"`
	UUID                string          `json:"uuid"`
	SequenceUUID        string          `json:"sequence_uuid"`
	SerializationFormat string          `json:"serialization_format"`
	OntologyTag         string          `json:"ontology_tag"`
	UserMetadata        json.RawMessage `json:"user_metadata"`
}

type jsonBlobWriter interface {
	WriteBytes(ctx context.Context, path string, data []byte) error
}

func writeJSONBlob(ctx context.Context, store jsonBlobWriter, path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return store.WriteBytes(ctx, path, data)
}

// uuidOrNil parses s, returning uuid.Nil on failure rather than erroring;
// used only for best-effort display paths.
func uuidOrNil(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}
