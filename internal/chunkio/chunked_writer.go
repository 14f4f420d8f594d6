package chunkio

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	"mosaico/internal/colstats"
)

// ObjectWriter is the minimal capability ChunkedWriter needs from the object
// store: writing a byte blob to a path.
type ObjectWriter interface {
	WriteBytes(ctx context.Context, path string, data []byte) error
}

// PathFormatter derives the object-store path for chunk index under root
// using the persisted format profile.
type PathFormatter func(root string, format Format, index int) string

// OnChunkCreated is invoked after a chunk blob has been written to the
// object store, with its path and accumulated statistics. Implementations
// typically persist a chunk row plus per-column stats rows here.
type OnChunkCreated func(ctx context.Context, path string, stats *colstats.ColumnStats) error

// ChunkedWriter turns an unbounded sequence of batches into one or more
// numbered chunk blobs under root. A fresh inner ChunkWriter is created
// lazily on the first Write after construction or after a prior
// Finalize/Rotate.
type ChunkedWriter struct {
	root      string
	format    Format
	store     ObjectWriter
	pathFor   PathFormatter
	onCreated OnChunkCreated

	maxChunkBytes int64

	inner *ChunkWriter
	index int
}

// Config bundles the collaborators a ChunkedWriter needs.
type Config struct {
	Root          string
	Format        Format
	Store         ObjectWriter
	PathFormatter PathFormatter
	OnCreated     OnChunkCreated
	// MaxChunkBytes triggers Rotate automatically from Write when non-zero.
	// Zero disables automatic rotation (finalize-only policy).
	MaxChunkBytes int64
}

// DefaultPathFormatter implements the standard "root/data-NNNNN.ext" layout.
func DefaultPathFormatter(root string, format Format, index int) string {
	return fmt.Sprintf("%s/data-%05d.%s", root, index, format.Extension())
}

// NewChunkedWriter constructs a writer rooted at cfg.Root.
func NewChunkedWriter(cfg Config) *ChunkedWriter {
	pathFor := cfg.PathFormatter
	if pathFor == nil {
		pathFor = DefaultPathFormatter
	}
	return &ChunkedWriter{
		root:          cfg.Root,
		format:        cfg.Format,
		store:         cfg.Store,
		pathFor:       pathFor,
		onCreated:     cfg.OnCreated,
		maxChunkBytes: cfg.MaxChunkBytes,
	}
}

// Write appends rec to the current chunk, lazily instantiating the inner
// ChunkWriter on first call. If MaxChunkBytes is configured and MemorySize()
// reaches it after this write, the current chunk is rotated immediately.
func (cw *ChunkedWriter) Write(ctx context.Context, rec arrow.Record) error {
	if cw.inner == nil {
		cw.inner = NewChunkWriter(cw.format)
	}
	if err := cw.inner.Write(rec); err != nil {
		return err
	}
	if cw.maxChunkBytes > 0 && cw.inner.MemorySize() >= cw.maxChunkBytes {
		return cw.Rotate(ctx)
	}
	return nil
}

// Finalize flushes the current inner writer (if any), persists its blob and
// invokes the on-chunk-created callback. A subsequent Write starts a fresh
// chunk. Calling Finalize with no pending writer is a no-op.
func (cw *ChunkedWriter) Finalize(ctx context.Context) error {
	if cw.inner == nil {
		return nil
	}
	return cw.flushCurrent(ctx)
}

// Rotate finalizes the current chunk exactly as Finalize would and leaves
// the writer ready to start a new one on the next Write. It is the
// size-triggered mid-stream extension to the base finalize-only policy,
// using the same on-chunk-created callback contract.
func (cw *ChunkedWriter) Rotate(ctx context.Context) error {
	if cw.inner == nil {
		return nil
	}
	return cw.flushCurrent(ctx)
}

func (cw *ChunkedWriter) flushCurrent(ctx context.Context) error {
	data, stats, err := cw.inner.Finalize()
	if err != nil {
		return fmt.Errorf("finalize chunk %d: %w", cw.index, err)
	}
	cw.inner = nil

	path := cw.pathFor(cw.root, cw.format, cw.index)
	if err := cw.store.WriteBytes(ctx, path, data); err != nil {
		return fmt.Errorf("write chunk blob %s: %w", path, err)
	}

	if cw.onCreated != nil {
		if err := cw.onCreated(ctx, path, stats); err != nil {
			return fmt.Errorf("on-chunk-created callback for %s: %w", path, err)
		}
	}

	cw.index++
	return nil
}

// ChunkCount returns the number of chunks finalized so far.
func (cw *ChunkedWriter) ChunkCount() int { return cw.index }
