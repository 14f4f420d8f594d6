package facade_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"mosaico/internal/facade"
	"mosaico/internal/metadata"
	"mosaico/internal/mosaicoerr"
	"mosaico/internal/objectstore"
)

func newTestStore(t *testing.T) *metadata.Repository {
	t.Helper()
	repo, err := metadata.NewRepository(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func newObjectStore(t *testing.T) objectstore.Store {
	t.Helper()
	store, err := objectstore.NewFilesystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemStore: %v", err)
	}
	return store
}

func codeOf(err error) mosaicoerr.Code {
	var merr *mosaicoerr.Error
	if errors.As(err, &merr) {
		return merr.Code
	}
	return mosaicoerr.Internal
}

func TestSequenceFacade_CreateThenLock(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t)
	store := newObjectStore(t)
	sf := facade.NewSequenceFacade(facade.SequenceFacadeConfig{Repo: repo, Store: store, Name: "fleet"})

	seq, err := sf.Create(ctx, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if seq.Locked {
		t.Fatal("newly created sequence must start unlocked")
	}

	if _, err := sf.Create(ctx, nil); codeOf(err) != mosaicoerr.AlreadyExists {
		t.Fatalf("second Create code = %v, want already_exists", codeOf(err))
	}

	if err := sf.Lock(ctx); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := sf.Lock(ctx); codeOf(err) != mosaicoerr.SequenceLocked {
		t.Fatalf("double Lock code = %v, want sequence_locked", codeOf(err))
	}
}

func TestSequenceFacade_LockRefusedWithUnlockedTopic(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t)
	store := newObjectStore(t)
	sf := facade.NewSequenceFacade(facade.SequenceFacadeConfig{Repo: repo, Store: store, Name: "fleet"})

	seq, err := sf.Create(ctx, nil)
	if err != nil {
		t.Fatalf("Create sequence: %v", err)
	}

	tf := facade.NewTopicFacade(facade.TopicFacadeConfig{Repo: repo, Store: store, Name: "fleet/readings"})
	if _, err := tf.Create(ctx, seq.UUID, "default", "test", nil); err != nil {
		t.Fatalf("Create topic: %v", err)
	}

	if err := sf.Lock(ctx); codeOf(err) != mosaicoerr.TopicUnlocked {
		t.Fatalf("Lock with unlocked child code = %v, want topic_unlocked", codeOf(err))
	}

	if err := tf.Lock(ctx); err != nil {
		t.Fatalf("Lock topic: %v", err)
	}
	if err := sf.Lock(ctx); err != nil {
		t.Fatalf("Lock sequence after child locked: %v", err)
	}
}

func TestSequenceFacade_DeleteRefusedWhileLocked(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t)
	store := newObjectStore(t)
	sf := facade.NewSequenceFacade(facade.SequenceFacadeConfig{Repo: repo, Store: store, Name: "fleet"})

	if _, err := sf.Create(ctx, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := sf.Lock(ctx); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := sf.Delete(ctx); codeOf(err) != mosaicoerr.SequenceLocked {
		t.Fatalf("Delete while locked code = %v, want sequence_locked", codeOf(err))
	}
}

func TestSequenceFacade_DeleteCascadesToTopics(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t)
	store := newObjectStore(t)
	sf := facade.NewSequenceFacade(facade.SequenceFacadeConfig{Repo: repo, Store: store, Name: "fleet"})

	seq, err := sf.Create(ctx, nil)
	if err != nil {
		t.Fatalf("Create sequence: %v", err)
	}
	tf := facade.NewTopicFacade(facade.TopicFacadeConfig{Repo: repo, Store: store, Name: "fleet/readings"})
	if _, err := tf.Create(ctx, seq.UUID, "default", "test", nil); err != nil {
		t.Fatalf("Create topic: %v", err)
	}

	if err := sf.Delete(ctx); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := tf.All(ctx); codeOf(err) != mosaicoerr.NotFound {
		t.Fatalf("topic lookup after cascaded delete code = %v, want not_found", codeOf(err))
	}
}

func TestTopicFacade_CreateRequiresUnlockedParent(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t)
	store := newObjectStore(t)
	sf := facade.NewSequenceFacade(facade.SequenceFacadeConfig{Repo: repo, Store: store, Name: "fleet"})
	seq, err := sf.Create(ctx, nil)
	if err != nil {
		t.Fatalf("Create sequence: %v", err)
	}
	if err := sf.Lock(ctx); err != nil {
		t.Fatalf("Lock sequence: %v", err)
	}

	tf := facade.NewTopicFacade(facade.TopicFacadeConfig{Repo: repo, Store: store, Name: "fleet/readings"})
	if _, err := tf.Create(ctx, seq.UUID, "default", "test", nil); codeOf(err) != mosaicoerr.SequenceLocked {
		t.Fatalf("Create under locked sequence code = %v, want sequence_locked", codeOf(err))
	}
}

func TestTopicFacade_CreateRejectsNonChildName(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t)
	store := newObjectStore(t)
	sf := facade.NewSequenceFacade(facade.SequenceFacadeConfig{Repo: repo, Store: store, Name: "fleet"})
	seq, err := sf.Create(ctx, nil)
	if err != nil {
		t.Fatalf("Create sequence: %v", err)
	}

	tf := facade.NewTopicFacade(facade.TopicFacadeConfig{Repo: repo, Store: store, Name: "other"})
	if _, err := tf.Create(ctx, seq.UUID, "default", "test", nil); codeOf(err) != mosaicoerr.Unauthorized {
		t.Fatalf("Create with non-child name code = %v, want unauthorized", codeOf(err))
	}
}

func TestTopicFacade_UpdateRefusedWhileLocked(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t)
	store := newObjectStore(t)
	sf := facade.NewSequenceFacade(facade.SequenceFacadeConfig{Repo: repo, Store: store, Name: "fleet"})
	seq, err := sf.Create(ctx, nil)
	if err != nil {
		t.Fatalf("Create sequence: %v", err)
	}
	tf := facade.NewTopicFacade(facade.TopicFacadeConfig{Repo: repo, Store: store, Name: "fleet/readings"})
	if _, err := tf.Create(ctx, seq.UUID, "default", "test", nil); err != nil {
		t.Fatalf("Create topic: %v", err)
	}

	if _, err := tf.Update(ctx, "default", "updated-tag", nil); err != nil {
		t.Fatalf("Update while unlocked: %v", err)
	}

	if err := tf.Lock(ctx); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if _, err := tf.Update(ctx, "default", "another-tag", nil); codeOf(err) != mosaicoerr.TopicLocked {
		t.Fatalf("Update while locked code = %v, want topic_locked", codeOf(err))
	}
	if err := tf.Delete(ctx); codeOf(err) != mosaicoerr.TopicLocked {
		t.Fatalf("Delete while locked code = %v, want topic_locked", codeOf(err))
	}
}

func TestTopicFacade_ArrowSchemaRequiresAChunk(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t)
	store := newObjectStore(t)
	sf := facade.NewSequenceFacade(facade.SequenceFacadeConfig{Repo: repo, Store: store, Name: "fleet"})
	seq, err := sf.Create(ctx, nil)
	if err != nil {
		t.Fatalf("Create sequence: %v", err)
	}
	tf := facade.NewTopicFacade(facade.TopicFacadeConfig{Repo: repo, Store: store, Name: "fleet/readings"})
	if _, err := tf.Create(ctx, seq.UUID, "default", "test", nil); err != nil {
		t.Fatalf("Create topic: %v", err)
	}

	if _, err := tf.ArrowSchema(ctx); codeOf(err) != mosaicoerr.NotFound {
		t.Fatalf("ArrowSchema with no chunks code = %v, want not_found", codeOf(err))
	}
}

func TestLayerFacade_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t)
	lf := facade.NewLayerFacade(repo)

	layer, err := lf.Create(ctx, "raw", "unprocessed data")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if layer.Description != "unprocessed data" {
		t.Fatalf("Description = %q, want %q", layer.Description, "unprocessed data")
	}

	if _, err := lf.Create(ctx, "raw", "duplicate"); codeOf(err) != mosaicoerr.AlreadyExists {
		t.Fatalf("duplicate Create code = %v, want already_exists", codeOf(err))
	}

	updated, err := lf.Update(ctx, "raw", "processed data")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Description != "processed data" {
		t.Fatalf("Description after Update = %q, want %q", updated.Description, "processed data")
	}

	layers, err := lf.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	found := false
	for _, l := range layers {
		if l.Name == "raw" {
			found = true
		}
	}
	if !found {
		t.Fatal("List did not include the created layer")
	}

	if err := lf.Delete(ctx, "raw"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := lf.Get(ctx, "raw"); codeOf(err) != mosaicoerr.NotFound {
		t.Fatalf("Get after Delete code = %v, want not_found", codeOf(err))
	}
}
