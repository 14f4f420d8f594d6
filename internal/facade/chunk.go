package facade

import (
	"context"
	"fmt"

	"mosaico/internal/colstats"
	"mosaico/internal/metadata"
	"mosaico/internal/mosaicoerr"
)

// ChunkFacadeConfig bundles a ChunkFacade's collaborators. OntologyTag
// scopes the column rows this chunk's stats are upserted against, since
// columns are keyed by (name, ontology_tag).
type ChunkFacadeConfig struct {
	Repo        *metadata.Repository
	TopicID     int64
	OntologyTag string
}

// ChunkFacade creates a chunk row and, for every tracked column in a
// ColumnStats snapshot, pushes its numeric or literal stats row, upserting
// the column row lazily on first use. Everything happens in a single
// transaction committed by Create.
type ChunkFacade struct {
	repo        *metadata.Repository
	topicID     int64
	ontologyTag string
}

func NewChunkFacade(cfg ChunkFacadeConfig) *ChunkFacade {
	return &ChunkFacade{repo: cfg.Repo, topicID: cfg.TopicID, ontologyTag: cfg.OntologyTag}
}

// Create inserts a chunk row for dataFilePath, then a stats row per
// tracked column in stats, and commits. It is the on-chunk-created
// callback TopicFacade.Writer wires into chunkio.ChunkedWriter.
func (f *ChunkFacade) Create(ctx context.Context, dataFilePath string, stats *colstats.ColumnStats) error {
	err := f.repo.WithTx(ctx, func(tx *metadata.Tx) error {
		chunk, err := tx.CreateChunk(ctx, f.topicID, dataFilePath)
		if err != nil {
			return err
		}

		for name, acc := range stats.Numeric {
			col, err := tx.UpsertColumn(ctx, name, f.ontologyTag)
			if err != nil {
				return err
			}
			err = tx.PutNumericChunkStats(ctx, metadata.NumericChunkStats{
				ColumnID: col.ID,
				ChunkID:  chunk.ID,
				Min:      acc.Min,
				Max:      acc.Max,
				HasNull:  acc.HasNull,
				HasNaN:   acc.HasNaN,
			})
			if err != nil {
				return err
			}
		}

		for name, acc := range stats.Text {
			col, err := tx.UpsertColumn(ctx, name, f.ontologyTag)
			if err != nil {
				return err
			}
			err = tx.PutLiteralChunkStats(ctx, metadata.LiteralChunkStats{
				ColumnID: col.ID,
				ChunkID:  chunk.ID,
				Min:      acc.Min,
				Max:      acc.Max,
				HasNull:  acc.HasNull,
			})
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return mosaicoerr.New(mosaicoerr.Internal, fmt.Errorf("create chunk for topic %d: %w", f.topicID, err))
	}
	return nil
}
