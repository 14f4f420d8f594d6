// Package columnar wraps arrow-go/pqarrow chunk reads against the object
// store: it reads every chunk blob under a topic's path as one logical,
// timestamp-ordered table, applies an ontology filter as a row-level
// residual predicate, and streams the result as Arrow record batches.
//
// Grounded on the source's timeseries gateway, which registers a listing
// table over a directory of Parquet files with DataFusion and issues a
// "SELECT * FROM data ORDER BY timestamp" query. There is no Go
// DataFusion equivalent in the pack, so the query-engine role is filled
// here with direct pqarrow table reads plus hand-rolled predicate
// evaluation over arrow.Record columns — chunks are already written in
// ascending timestamp order and rotate forward in time, so concatenating
// them in listing order preserves the ORDER BY timestamp guarantee
// without an explicit sort step.
package columnar

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"mosaico/internal/chunkio"
	"mosaico/internal/objectstore"
)

// Engine reads chunk blobs for a topic out of an object store.
type Engine struct {
	store objectstore.Store
}

// NewEngine wraps store for columnar reads.
func NewEngine(store objectstore.Store) *Engine {
	return &Engine{store: store}
}

// Read opens every chunk blob under path (a topic's directory) and
// returns them as one logical, timestamp-ordered Result. If repartition
// is set, records are re-batched so that each batch's encoded size is
// close to targetMessageBytes, mirroring the source's
// target_message_size_in_bytes * row_count / total_size computation.
func (e *Engine) Read(ctx context.Context, path string, format chunkio.Format, repartition bool, targetMessageBytes int64) (*Result, error) {
	files, err := e.store.List(ctx, path, format.Extension())
	if err != nil {
		return nil, fmt.Errorf("list chunk blobs: %w", err)
	}
	sort.Strings(files)
	return e.readFiles(ctx, files, repartition, targetMessageBytes)
}

// ReadFiles reads exactly the given chunk blob paths, in the order given,
// as one logical Result. Used by the query planner after chunk pruning
// has already narrowed a topic's chunks to a specific candidate set,
// where a fresh directory listing would undo the pruning.
func (e *Engine) ReadFiles(ctx context.Context, paths []string, repartition bool, targetMessageBytes int64) (*Result, error) {
	return e.readFiles(ctx, paths, repartition, targetMessageBytes)
}

func (e *Engine) readFiles(ctx context.Context, files []string, repartition bool, targetMessageBytes int64) (*Result, error) {
	if len(files) == 0 {
		return &Result{}, nil
	}

	var records []arrow.Record
	var totalBytes int64
	var schema *arrow.Schema

	for _, f := range files {
		data, err := e.store.ReadBytes(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("read chunk blob %q: %w", f, err)
		}
		totalBytes += int64(len(data))

		recs, fileSchema, err := readChunkRecords(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("decode chunk blob %q: %w", f, err)
		}
		if schema == nil {
			schema = fileSchema
		}
		records = append(records, recs...)
	}

	if repartition && targetMessageBytes > 0 && totalBytes > 0 {
		var totalRows int64
		for _, r := range records {
			totalRows += r.NumRows()
		}
		targetRows := targetMessageBytes * totalRows / totalBytes
		records, err = repartitionRecords(schema, records, targetRows)
		if err != nil {
			return nil, fmt.Errorf("repartition records: %w", err)
		}
	}

	return &Result{schema: schema, records: records}, nil
}

// readChunkRecords decodes one Parquet blob into its full set of record
// batches plus its schema.
func readChunkRecords(ctx context.Context, data []byte) ([]arrow.Record, *arrow.Schema, error) {
	rdr, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("open parquet reader: %w", err)
	}
	defer rdr.Close()

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, nil, fmt.Errorf("open arrow reader: %w", err)
	}

	tbl, err := fr.ReadTable(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read table: %w", err)
	}
	defer tbl.Release()

	schema := tbl.Schema()
	if tbl.NumRows() == 0 {
		return nil, schema, nil
	}

	tr := array.NewTableReader(tbl, tbl.NumRows())
	defer tr.Release()

	var records []arrow.Record
	for tr.Next() {
		rec := tr.Record()
		rec.Retain()
		records = append(records, rec)
	}
	return records, schema, nil
}
