package facade

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/google/uuid"

	"mosaico/internal/chunkio"
	"mosaico/internal/colstats"
	"mosaico/internal/locator"
	"mosaico/internal/metadata"
	"mosaico/internal/mosaicoerr"
	"mosaico/internal/objectstore"
)

// TopicFacadeConfig bundles a TopicFacade's collaborators.
type TopicFacadeConfig struct {
	Repo  *metadata.Repository
	Store objectstore.Store
	Name  string
	Now   Clock
}

// TopicFacade enforces the Topic lifecycle: creation requires an unlocked
// parent sequence and a name that strictly extends the parent's, property
// updates and deletion require the topic (and its parent) to be unlocked.
type TopicFacade struct {
	repo  *metadata.Repository
	store objectstore.Store
	loc   locator.Locator
	now   Clock
}

func NewTopicFacade(cfg TopicFacadeConfig) *TopicFacade {
	return &TopicFacade{
		repo:  cfg.Repo,
		store: cfg.Store,
		loc:   locator.New(locator.Topic, cfg.Name),
		now:   nowOrDefault(cfg.Now),
	}
}

// ResourceLocator exposes the facade's underlying locator.
func (f *TopicFacade) ResourceLocator() locator.Locator { return f.loc }

// Create inserts a topic row under the sequence identified by
// parentSequenceUUID. The topic's name must strictly extend the parent
// sequence's name with a "/" separator; equality is not a valid
// sub-resource relation here.
func (f *TopicFacade) Create(ctx context.Context, parentSequenceUUID uuid.UUID, serializationFormat, ontologyTag string, userMetadata json.RawMessage) (*metadata.Topic, error) {
	parent, err := f.repo.GetSequenceByUUID(ctx, parentSequenceUUID)
	if err != nil {
		return nil, mosaicoerr.New(mosaicoerr.Internal, err)
	}
	if parent == nil {
		return nil, mosaicoerr.Newf(mosaicoerr.NotFound, "parent sequence %s not found", parentSequenceUUID)
	}
	if parent.Locked {
		return nil, mosaicoerr.Newf(mosaicoerr.SequenceLocked, "parent sequence %q is locked", parent.Name)
	}

	parentLoc := locator.New(locator.Sequence, parent.Name)
	if !f.loc.IsSubResourceOf(parentLoc) {
		return nil, mosaicoerr.Newf(mosaicoerr.Unauthorized, "topic %q is not a sub-resource of sequence %q", f.loc.Name(), parent.Name)
	}

	existing, err := f.repo.GetTopicByName(ctx, f.loc.Name())
	if err != nil {
		return nil, mosaicoerr.New(mosaicoerr.Internal, err)
	}
	if existing != nil {
		return nil, mosaicoerr.Newf(mosaicoerr.AlreadyExists, "topic %q already exists", f.loc.Name())
	}

	var topic *metadata.Topic
	err = f.repo.WithTx(ctx, func(tx *metadata.Tx) error {
		var err error
		topic, err = tx.CreateTopic(ctx, parent.ID, f.loc.Name(), serializationFormat, ontologyTag, f.now().UnixMilli(), userMetadata)
		return err
	})
	if err != nil {
		return nil, mosaicoerr.New(mosaicoerr.Internal, err)
	}

	doc := topicMetadataDoc{
		Name:                topic.Name,
		UUID:                topic.UUID.String(),
		SequenceUUID:        parent.UUID.String(),
		SerializationFormat: topic.SerializationFormat,
		OntologyTag:         topic.OntologyTag,
		UserMetadata:        topic.UserMetadata,
	}
	if err := writeJSONBlob(ctx, f.store, f.loc.MetadataPath(), doc); err != nil {
		return nil, mosaicoerr.New(mosaicoerr.Internal, fmt.Errorf("write topic metadata blob: %w", err))
	}
	return topic, nil
}

// Lock sets the topic's locked flag. There is no unlock: the transition is
// monotonic, mirroring SequenceFacade.Lock.
func (f *TopicFacade) Lock(ctx context.Context) error {
	topic, err := f.mustGet(ctx)
	if err != nil {
		return err
	}
	if topic.Locked {
		return mosaicoerr.Newf(mosaicoerr.TopicLocked, "topic %q already locked", f.loc.Name())
	}
	err = f.repo.WithTx(ctx, func(tx *metadata.Tx) error {
		return tx.SetTopicLocked(ctx, topic.ID, true)
	})
	if err != nil {
		return mosaicoerr.New(mosaicoerr.Internal, err)
	}
	return nil
}

// Update mutates the three topic properties plus user metadata, refusing
// while either the topic or its parent sequence is locked.
func (f *TopicFacade) Update(ctx context.Context, serializationFormat, ontologyTag string, userMetadata json.RawMessage) (*metadata.Topic, error) {
	topic, err := f.mustGet(ctx)
	if err != nil {
		return nil, err
	}
	if topic.Locked {
		return nil, mosaicoerr.Newf(mosaicoerr.TopicLocked, "topic %q is locked", f.loc.Name())
	}

	parent, err := f.repo.GetSequenceByID(ctx, topic.SequenceID)
	if err != nil {
		return nil, mosaicoerr.New(mosaicoerr.Internal, err)
	}
	if parent != nil && parent.Locked {
		return nil, mosaicoerr.Newf(mosaicoerr.SequenceLocked, "parent sequence is locked")
	}

	updated := *topic
	updated.SerializationFormat = serializationFormat
	updated.OntologyTag = ontologyTag
	updated.UserMetadata = userMetadata

	err = f.repo.WithTx(ctx, func(tx *metadata.Tx) error {
		return tx.UpdateTopicProperties(ctx, topic.ID, serializationFormat, ontologyTag, userMetadata)
	})
	if err != nil {
		return nil, mosaicoerr.New(mosaicoerr.Internal, err)
	}

	doc := topicMetadataDoc{
		Name:                updated.Name,
		UUID:                updated.UUID.String(),
		SerializationFormat: updated.SerializationFormat,
		OntologyTag:         updated.OntologyTag,
		UserMetadata:        updated.UserMetadata,
	}
	if parent != nil {
		doc.SequenceUUID = parent.UUID.String()
	}
	if err := writeJSONBlob(ctx, f.store, f.loc.MetadataPath(), doc); err != nil {
		return nil, mosaicoerr.New(mosaicoerr.Internal, fmt.Errorf("write topic metadata blob: %w", err))
	}
	return &updated, nil
}

// Delete removes the topic row and its blob subtree, refusing while
// locked.
func (f *TopicFacade) Delete(ctx context.Context) error {
	topic, err := f.mustGet(ctx)
	if err != nil {
		return err
	}
	if topic.Locked {
		return mosaicoerr.Newf(mosaicoerr.TopicLocked, "topic %q is locked", f.loc.Name())
	}
	return f.deleteRow(ctx, topic)
}

// UnsafeDelete removes the topic row and blob subtree regardless of lock
// state. Reserved for cascaded sequence deletion; the hazard is reflected
// in the method name.
func (f *TopicFacade) UnsafeDelete(ctx context.Context) error {
	topic, err := f.repo.GetTopicByName(ctx, f.loc.Name())
	if err != nil {
		return mosaicoerr.New(mosaicoerr.Internal, err)
	}
	if topic == nil {
		return nil
	}
	return f.deleteRow(ctx, topic)
}

func (f *TopicFacade) deleteRow(ctx context.Context, topic *metadata.Topic) error {
	err := f.repo.WithTx(ctx, func(tx *metadata.Tx) error {
		if err := tx.PurgeTopicNotify(ctx, topic.ID); err != nil {
			return err
		}
		return tx.DeleteTopic(ctx, topic.ID)
	})
	if err != nil {
		return mosaicoerr.New(mosaicoerr.Internal, err)
	}
	if err := f.store.DeleteRecursive(ctx, f.loc.Name()); err != nil {
		return mosaicoerr.New(mosaicoerr.Internal, fmt.Errorf("delete topic blob subtree: %w", err))
	}
	return nil
}

// NotifyCreate appends a notify-log entry.
func (f *TopicFacade) NotifyCreate(ctx context.Context, kind metadata.NotifyKind, msg string) error {
	topic, err := f.mustGet(ctx)
	if err != nil {
		return err
	}
	err = f.repo.WithTx(ctx, func(tx *metadata.Tx) error {
		return tx.AddTopicNotify(ctx, topic.ID, kind, msg, f.now().UnixMilli())
	})
	if err != nil {
		return mosaicoerr.New(mosaicoerr.Internal, err)
	}
	return nil
}

// NotifyList returns every notify-log entry for this topic.
func (f *TopicFacade) NotifyList(ctx context.Context) ([]metadata.Notify, error) {
	topic, err := f.mustGet(ctx)
	if err != nil {
		return nil, err
	}
	out, err := f.repo.ListTopicNotify(ctx, topic.ID)
	if err != nil {
		return nil, mosaicoerr.New(mosaicoerr.Internal, err)
	}
	return out, nil
}

// NotifyPurge deletes every notify-log entry for this topic.
func (f *TopicFacade) NotifyPurge(ctx context.Context) error {
	topic, err := f.mustGet(ctx)
	if err != nil {
		return err
	}
	err = f.repo.WithTx(ctx, func(tx *metadata.Tx) error {
		return tx.PurgeTopicNotify(ctx, topic.ID)
	})
	if err != nil {
		return mosaicoerr.New(mosaicoerr.Internal, err)
	}
	return nil
}

// Metadata returns the topic's opaque user-metadata document.
func (f *TopicFacade) Metadata(ctx context.Context) (json.RawMessage, error) {
	topic, err := f.mustGet(ctx)
	if err != nil {
		return nil, err
	}
	return topic.UserMetadata, nil
}

// ResourceID returns the topic's server-assigned UUID.
func (f *TopicFacade) ResourceID(ctx context.Context) (uuid.UUID, error) {
	topic, err := f.mustGet(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	return topic.UUID, nil
}

// All returns the full topic row.
func (f *TopicFacade) All(ctx context.Context) (*metadata.Topic, error) {
	return f.mustGet(ctx)
}

// Writer constructs a ChunkedWriter rooted at this topic's path, wiring its
// on-chunk-created callback to persist a chunk row plus per-column stats
// rows in a single metadata transaction.
func (f *TopicFacade) Writer(ctx context.Context, format chunkio.Format, maxChunkBytes int64) (*chunkio.ChunkedWriter, error) {
	topic, err := f.mustGet(ctx)
	if err != nil {
		return nil, err
	}

	cfg := chunkio.Config{
		Root:          f.loc.Name(),
		Format:        format,
		Store:         f.store,
		MaxChunkBytes: maxChunkBytes,
		OnCreated: func(ctx context.Context, path string, stats *colstats.ColumnStats) error {
			cf := NewChunkFacade(ChunkFacadeConfig{Repo: f.repo, TopicID: topic.ID, OntologyTag: topic.OntologyTag})
			return cf.Create(ctx, path, stats)
		},
	}
	return chunkio.NewChunkedWriter(cfg), nil
}

// ArrowSchema reads chunk 0's datafile and returns its schema. Chunk 0 is
// guaranteed to exist iff the topic has any data.
func (f *TopicFacade) ArrowSchema(ctx context.Context) (*arrow.Schema, error) {
	topic, err := f.mustGet(ctx)
	if err != nil {
		return nil, err
	}
	chunks, err := f.repo.ListChunksByTopic(ctx, topic.ID)
	if err != nil {
		return nil, mosaicoerr.New(mosaicoerr.Internal, err)
	}
	if len(chunks) == 0 {
		return nil, mosaicoerr.Newf(mosaicoerr.NotFound, "topic %q has no chunks", f.loc.Name())
	}

	data, err := f.store.ReadBytes(ctx, chunks[0].DataFilePath)
	if err != nil {
		return nil, mosaicoerr.New(mosaicoerr.Internal, fmt.Errorf("read chunk 0: %w", err))
	}

	rdr, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, mosaicoerr.New(mosaicoerr.Internal, fmt.Errorf("open parquet reader: %w", err))
	}
	defer rdr.Close()

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, mosaicoerr.New(mosaicoerr.Internal, fmt.Errorf("open arrow reader: %w", err))
	}

	schema, err := fr.Schema()
	if err != nil {
		return nil, mosaicoerr.New(mosaicoerr.Internal, fmt.Errorf("derive arrow schema: %w", err))
	}
	return schema, nil
}

func (f *TopicFacade) mustGet(ctx context.Context) (*metadata.Topic, error) {
	topic, err := f.repo.GetTopicByName(ctx, f.loc.Name())
	if err != nil {
		return nil, mosaicoerr.New(mosaicoerr.Internal, err)
	}
	if topic == nil {
		return nil, mosaicoerr.Newf(mosaicoerr.NotFound, "topic %q not found", f.loc.Name())
	}
	return topic, nil
}
