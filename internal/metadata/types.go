package metadata

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Sequence is the top-level append-only resource: a named collection of
// topics sharing a lifecycle.
type Sequence struct {
	ID            int64
	UUID          uuid.UUID
	Name          string
	Locked        bool
	CreatedUnixMs int64
	UserMetadata  json.RawMessage
}

// Topic is a named, typed stream of data chunks nested under a sequence.
type Topic struct {
	ID                   int64
	UUID                 uuid.UUID
	SequenceID           int64
	Name                 string
	SerializationFormat  string
	OntologyTag          string
	Locked               bool
	CreatedUnixMs        int64
	UserMetadata         json.RawMessage
}

// Chunk is one immutable data-file blob belonging to a topic.
type Chunk struct {
	ID           int64
	UUID         uuid.UUID
	TopicID      int64
	DataFilePath string
}

// Column identifies a flattened, dotted field path within an ontology tag's
// schema. Columns are created lazily on first stats insertion.
type Column struct {
	ID          int64
	Name        string
	OntologyTag string
}

// NumericChunkStats is a (column, chunk) statistics row for a numeric column.
type NumericChunkStats struct {
	ColumnID int64
	ChunkID  int64
	Min      float64
	Max      float64
	HasNull  bool
	HasNaN   bool
}

// LiteralChunkStats is a (column, chunk) statistics row for a text-like column.
type LiteralChunkStats struct {
	ColumnID int64
	ChunkID  int64
	Min      string
	Max      string
	HasNull  bool
}

// NotifyKind is the closed set of notify-log entry kinds.
type NotifyKind string

const NotifyKindError NotifyKind = "error"

// Notify is a timestamped log entry attached to a sequence or topic.
type Notify struct {
	ID            int64
	Kind          NotifyKind
	Msg           string
	CreatedUnixMs int64
}

// Layer is a named grouping with a description.
type Layer struct {
	ID          int64
	Name        string
	Description string
}

const (
	DefaultLayerName        = "default"
	DefaultLayerDescription = "the default layer, materialized at startup"
)
