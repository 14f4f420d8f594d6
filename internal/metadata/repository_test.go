package metadata

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	r, err := NewRepository(context.Background(), path)
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestDefaultLayerBootstrapped(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	r, err := NewRepository(ctx, path)
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	l, err := r.GetLayerByName(ctx, DefaultLayerName)
	if err != nil {
		t.Fatalf("GetLayerByName: %v", err)
	}
	if l == nil {
		t.Fatal("expected default layer to exist after NewRepository")
	}
	r.Close()

	// Reopening against the same file must not create a second default layer.
	r2, err := NewRepository(ctx, path)
	if err != nil {
		t.Fatalf("NewRepository (reopen): %v", err)
	}
	defer r2.Close()
	layers, err := r2.ListLayers(ctx)
	if err != nil {
		t.Fatalf("ListLayers: %v", err)
	}
	if len(layers) != 1 {
		t.Fatalf("expected exactly one layer, got %d", len(layers))
	}
}

func TestSequenceTopicLifecycle(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()

	var seqID int64
	err := r.WithTx(ctx, func(tx *Tx) error {
		seq, err := tx.CreateSequence(ctx, "fleet-42", 1000, nil)
		if err != nil {
			return err
		}
		seqID = seq.ID
		if seq.Locked {
			t.Fatal("new sequence should be unlocked")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("create sequence: %v", err)
	}

	var topicID int64
	err = r.WithTx(ctx, func(tx *Tx) error {
		topic, err := tx.CreateTopic(ctx, seqID, "fleet-42/pose", "arrow-ipc", "pose", 1001, json.RawMessage(`{"unit":"m"}`))
		if err != nil {
			return err
		}
		topicID = topic.ID
		return nil
	})
	if err != nil {
		t.Fatalf("create topic: %v", err)
	}

	n, err := r.CountUnlockedTopics(ctx, seqID)
	if err != nil {
		t.Fatalf("CountUnlockedTopics: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 unlocked topic, got %d", n)
	}

	err = r.WithTx(ctx, func(tx *Tx) error {
		return tx.SetTopicLocked(ctx, topicID, true)
	})
	if err != nil {
		t.Fatalf("lock topic: %v", err)
	}

	n, err = r.CountUnlockedTopics(ctx, seqID)
	if err != nil {
		t.Fatalf("CountUnlockedTopics: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 unlocked topics after lock, got %d", n)
	}

	got, err := r.GetTopicByName(ctx, "fleet-42/pose")
	if err != nil {
		t.Fatalf("GetTopicByName: %v", err)
	}
	if got == nil || !got.Locked {
		t.Fatal("expected locked topic fleet-42/pose")
	}
}

func TestColumnUpsertReturnsSameID(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()

	var first, second int64
	err := r.WithTx(ctx, func(tx *Tx) error {
		c, err := tx.UpsertColumn(ctx, "pose.x", "pose")
		if err != nil {
			return err
		}
		first = c.ID
		return nil
	})
	if err != nil {
		t.Fatalf("upsert 1: %v", err)
	}

	err = r.WithTx(ctx, func(tx *Tx) error {
		c, err := tx.UpsertColumn(ctx, "pose.x", "pose")
		if err != nil {
			return err
		}
		second = c.ID
		return nil
	})
	if err != nil {
		t.Fatalf("upsert 2: %v", err)
	}

	if first != second {
		t.Fatalf("expected stable column id, got %d then %d", first, second)
	}
}

func TestChunkStatsRoundTrip(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()

	var colID, chunkID int64
	err := r.WithTx(ctx, func(tx *Tx) error {
		seq, err := tx.CreateSequence(ctx, "fleet-7", 1, nil)
		if err != nil {
			return err
		}
		topic, err := tx.CreateTopic(ctx, seq.ID, "fleet-7/pose", "arrow-ipc", "pose", 2, nil)
		if err != nil {
			return err
		}
		chunk, err := tx.CreateChunk(ctx, topic.ID, "fleet-7/pose/data-00000.parquet")
		if err != nil {
			return err
		}
		chunkID = chunk.ID

		col, err := tx.UpsertColumn(ctx, "pose.x", "pose")
		if err != nil {
			return err
		}
		colID = col.ID

		return tx.PutNumericChunkStats(ctx, NumericChunkStats{
			ColumnID: colID, ChunkID: chunkID, Min: -1.5, Max: 9.25, HasNull: true,
		})
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	stats, err := r.NumericStatsForChunks(ctx, colID, []int64{chunkID})
	if err != nil {
		t.Fatalf("NumericStatsForChunks: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected 1 stats row, got %d", len(stats))
	}
	if stats[0].Min != -1.5 || stats[0].Max != 9.25 || !stats[0].HasNull || stats[0].HasNaN {
		t.Fatalf("unexpected stats: %+v", stats[0])
	}
}

func TestNotifyLog(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()

	var seqID int64
	err := r.WithTx(ctx, func(tx *Tx) error {
		seq, err := tx.CreateSequence(ctx, "fleet-9", 1, nil)
		if err != nil {
			return err
		}
		seqID = seq.ID
		return tx.AddSequenceNotify(ctx, seqID, NotifyKindError, "write failed", 5)
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	entries, err := r.ListSequenceNotify(ctx, seqID)
	if err != nil {
		t.Fatalf("ListSequenceNotify: %v", err)
	}
	if len(entries) != 1 || entries[0].Kind != NotifyKindError || entries[0].Msg != "write failed" {
		t.Fatalf("unexpected notify entries: %+v", entries)
	}
}
