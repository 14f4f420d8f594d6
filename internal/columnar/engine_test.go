package columnar_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"mosaico/internal/chunkio"
	"mosaico/internal/columnar"
	"mosaico/internal/facade"
	"mosaico/internal/metadata"
	"mosaico/internal/objectstore"
	"mosaico/internal/queryfilter"
)

func sampleRecord(t *testing.T, vals []float64) arrow.Record {
	t.Helper()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "timestamp", Type: arrow.PrimitiveTypes.Int64},
		{Name: "value", Type: arrow.PrimitiveTypes.Float64},
	}, nil)
	mem := memory.NewGoAllocator()
	tsB := array.NewInt64Builder(mem)
	valB := array.NewFloat64Builder(mem)
	for i, v := range vals {
		tsB.Append(int64(i))
		valB.Append(v)
	}
	return array.NewRecord(schema, []arrow.Array{tsB.NewArray(), valB.NewArray()}, int64(len(vals)))
}

func writeTopicChunks(t *testing.T, repo *metadata.Repository, store objectstore.Store, topicName string, batches [][]float64) {
	t.Helper()
	ctx := context.Background()
	sf := facade.NewSequenceFacade(facade.SequenceFacadeConfig{Repo: repo, Store: store, Name: "fleet"})
	seq, err := sf.Create(ctx, nil)
	if err != nil {
		t.Fatalf("Create sequence: %v", err)
	}
	tf := facade.NewTopicFacade(facade.TopicFacadeConfig{Repo: repo, Store: store, Name: topicName})
	if _, err := tf.Create(ctx, seq.UUID, "default", "test", nil); err != nil {
		t.Fatalf("Create topic: %v", err)
	}
	writer, err := tf.Writer(ctx, chunkio.FormatDefault, 0)
	if err != nil {
		t.Fatalf("Writer: %v", err)
	}
	for _, vals := range batches {
		rec := sampleRecord(t, vals)
		if err := writer.Write(ctx, rec); err != nil {
			rec.Release()
			t.Fatalf("Write: %v", err)
		}
		rec.Release()
		if err := writer.Finalize(ctx); err != nil {
			t.Fatalf("Finalize: %v", err)
		}
	}
}

func collectValues(t *testing.T, ctx context.Context, r *columnar.Result) []float64 {
	t.Helper()
	var got []float64
	for rec, err := range r.Stream(ctx) {
		if err != nil {
			t.Fatalf("Stream: %v", err)
		}
		col := rec.Column(1).(*array.Float64)
		for i := 0; i < col.Len(); i++ {
			got = append(got, col.Value(i))
		}
	}
	return got
}

func newEngineFixtures(t *testing.T) (*metadata.Repository, objectstore.Store) {
	t.Helper()
	repo, err := metadata.NewRepository(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	store, err := objectstore.NewFilesystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemStore: %v", err)
	}
	return repo, store
}

func TestEngine_ReadConcatenatesChunksInOrder(t *testing.T) {
	ctx := context.Background()
	repo, store := newEngineFixtures(t)
	writeTopicChunks(t, repo, store, "fleet/readings", [][]float64{{1, 2}, {3, 4, 5}})

	eng := columnar.NewEngine(store)
	result, err := eng.Read(ctx, "fleet/readings", chunkio.FormatDefault, false, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	count, err := result.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 5 {
		t.Fatalf("Count = %d, want 5", count)
	}

	got := collectValues(t, ctx, result)
	want := []float64{1, 2, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("values = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("values = %v, want %v", got, want)
		}
	}
}

func TestEngine_ReadEmptyPathReturnsEmptyResult(t *testing.T) {
	ctx := context.Background()
	_, store := newEngineFixtures(t)

	eng := columnar.NewEngine(store)
	result, err := eng.Read(ctx, "fleet/nothing", chunkio.FormatDefault, false, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	count, err := result.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Fatalf("Count = %d, want 0", count)
	}
}

func TestEngine_FilterAppliesResidualPredicate(t *testing.T) {
	ctx := context.Background()
	repo, store := newEngineFixtures(t)
	writeTopicChunks(t, repo, store, "fleet/readings", [][]float64{{1, 2, 3, 4}})

	eng := columnar.NewEngine(store)
	result, err := eng.Read(ctx, "fleet/readings", chunkio.FormatDefault, false, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	predicate := queryfilter.ResidualPredicate{
		Conjuncts: []queryfilter.ResidualConjunct{
			{
				Field: "value",
				Op:    queryfilter.Op{Kind: queryfilter.OpGeq, Value: queryfilter.FloatValue(3)},
			},
		},
	}
	filtered := result.Filter(predicate)

	count, err := filtered.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Fatalf("Count after filter = %d, want 2 (values 3 and 4)", count)
	}
}

func TestEngine_ReadFilesPreservesGivenOrder(t *testing.T) {
	ctx := context.Background()
	repo, store := newEngineFixtures(t)
	writeTopicChunks(t, repo, store, "fleet/readings", [][]float64{{1}, {2}, {3}})

	tf := facade.NewTopicFacade(facade.TopicFacadeConfig{Repo: repo, Store: store, Name: "fleet/readings"})
	schema, err := tf.ArrowSchema(ctx)
	if err != nil {
		t.Fatalf("ArrowSchema: %v", err)
	}
	if schema == nil {
		t.Fatal("ArrowSchema returned nil")
	}

	eng := columnar.NewEngine(store)
	full, err := eng.Read(ctx, "fleet/readings", chunkio.FormatDefault, false, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	fullCount, err := full.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if fullCount != 3 {
		t.Fatalf("Count = %d, want 3", fullCount)
	}

	reversed, err := eng.ReadFiles(ctx, []string{
		"fleet/readings/data-00002.parquet",
		"fleet/readings/data-00001.parquet",
		"fleet/readings/data-00000.parquet",
	}, false, 0)
	if err != nil {
		t.Fatalf("ReadFiles: %v", err)
	}
	got := collectValues(t, ctx, reversed)
	want := []float64{3, 2, 1}
	if len(got) != len(want) {
		t.Fatalf("ReadFiles values = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ReadFiles values = %v, want %v", got, want)
		}
	}
}
