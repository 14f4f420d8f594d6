package chunkio

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"mosaico/internal/colstats"
)

// ErrNoSchemaYet is returned by operations that need a schema before the
// first Write call has established one.
var ErrNoSchemaYet = errors.New("chunk writer has not seen a batch yet")

// ChunkWriter converts one batch-stream into one Parquet blob plus
// per-column statistics. It holds a single active encoder; Finalize
// consumes it.
type ChunkWriter struct {
	format Format
	schema *arrow.Schema
	stats  *colstats.ColumnStats

	buf    *bytes.Buffer
	fw     *pqarrow.FileWriter
	memory int64
}

// NewChunkWriter creates a writer for the given format profile. The inner
// encoder is not constructed until the first Write call supplies a schema.
func NewChunkWriter(format Format) *ChunkWriter {
	return &ChunkWriter{format: format}
}

// Write updates running statistics and forwards rec to the Parquet encoder,
// lazily initializing the encoder (and the stats map) from rec's schema on
// the first call.
func (w *ChunkWriter) Write(rec arrow.Record) error {
	if w.fw == nil {
		if err := w.open(rec.Schema()); err != nil {
			return err
		}
	}

	if err := w.stats.Accumulate(rec); err != nil {
		return fmt.Errorf("accumulate stats: %w", err)
	}
	if err := w.fw.Write(rec); err != nil {
		return fmt.Errorf("write record batch: %w", err)
	}
	w.memory += recordByteSize(rec)
	return nil
}

func (w *ChunkWriter) open(schema *arrow.Schema) error {
	props, err := writerProperties(w.format, schema)
	if err != nil {
		return err
	}

	w.buf = &bytes.Buffer{}
	fw, err := pqarrow.NewFileWriter(schema, w.buf, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return fmt.Errorf("open parquet writer: %w", err)
	}
	w.fw = fw
	w.schema = schema
	w.stats = colstats.NewColumnStats(schema)
	return nil
}

// MemorySize reports the encoder's current uncompressed footprint, used by
// ChunkedWriter to decide when to rotate mid-stream.
func (w *ChunkWriter) MemorySize() int64 { return w.memory }

// Finalize flushes the encoder to an in-memory buffer and returns the
// encoded bytes alongside the accumulated column statistics. The writer
// must not be used after Finalize.
func (w *ChunkWriter) Finalize() ([]byte, *colstats.ColumnStats, error) {
	if w.fw == nil {
		return nil, nil, ErrNoSchemaYet
	}
	if err := w.fw.Close(); err != nil {
		return nil, nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return w.buf.Bytes(), w.stats, nil
}

// recordByteSize sums the byte length of every buffer backing rec's
// columns, as a cheap proxy for uncompressed footprint.
func recordByteSize(rec arrow.Record) int64 {
	var total int64
	for i := 0; i < int(rec.NumCols()); i++ {
		col := rec.Column(i)
		for _, buf := range col.Data().Buffers() {
			if buf != nil {
				total += int64(buf.Len())
			}
		}
	}
	return total
}
