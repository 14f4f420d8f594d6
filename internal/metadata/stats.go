package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// upsertColumn implements the get-or-create column: a no-op update that
// always returns the row id, whether freshly inserted or already present.
func upsertColumn(ctx context.Context, q querier, name, ontologyTag string) (*Column, error) {
	row := q.QueryRowContext(ctx, `
		INSERT INTO column (name, ontology_tag)
		VALUES (?, ?)
		ON CONFLICT(name, ontology_tag) DO UPDATE SET name = name
		RETURNING id
	`, name, ontologyTag)

	var id int64
	if err := row.Scan(&id); err != nil {
		return nil, fmt.Errorf("upsert column %q/%q: %w", ontologyTag, name, err)
	}
	return &Column{ID: id, Name: name, OntologyTag: ontologyTag}, nil
}

func getColumn(ctx context.Context, q querier, name, ontologyTag string) (*Column, error) {
	row := q.QueryRowContext(ctx,
		"SELECT id, name, ontology_tag FROM column WHERE name = ? AND ontology_tag = ?", name, ontologyTag)

	var c Column
	err := row.Scan(&c.ID, &c.Name, &c.OntologyTag)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get column %q/%q: %w", ontologyTag, name, err)
	}
	return &c, nil
}

func listColumnsByOntologyTag(ctx context.Context, q querier, ontologyTag string) ([]Column, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, name, ontology_tag FROM column WHERE ontology_tag = ? ORDER BY name", ontologyTag)
	if err != nil {
		return nil, fmt.Errorf("list columns for ontology %q: %w", ontologyTag, err)
	}
	defer rows.Close()

	var out []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.ID, &c.Name, &c.OntologyTag); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func putNumericChunkStats(ctx context.Context, q querier, s NumericChunkStats) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO column_chunk_numeric (column_id, chunk_id, min, max, has_null, has_nan)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(column_id, chunk_id) DO UPDATE SET
			min = excluded.min, max = excluded.max,
			has_null = excluded.has_null, has_nan = excluded.has_nan
	`, s.ColumnID, s.ChunkID, s.Min, s.Max, boolToInt(s.HasNull), boolToInt(s.HasNaN))
	if err != nil {
		return fmt.Errorf("put numeric stats (column=%d, chunk=%d): %w", s.ColumnID, s.ChunkID, err)
	}
	return nil
}

func putLiteralChunkStats(ctx context.Context, q querier, s LiteralChunkStats) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO column_chunk_literal (column_id, chunk_id, min, max, has_null)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(column_id, chunk_id) DO UPDATE SET
			min = excluded.min, max = excluded.max, has_null = excluded.has_null
	`, s.ColumnID, s.ChunkID, s.Min, s.Max, boolToInt(s.HasNull))
	if err != nil {
		return fmt.Errorf("put literal stats (column=%d, chunk=%d): %w", s.ColumnID, s.ChunkID, err)
	}
	return nil
}

func numericStatsForChunks(ctx context.Context, q querier, columnID int64, chunkIDs []int64) ([]NumericChunkStats, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}
	query, args := inClauseQuery(`
		SELECT column_id, chunk_id, min, max, has_null, has_nan
		FROM column_chunk_numeric
		WHERE column_id = ? AND chunk_id IN (%s)
	`, columnID, chunkIDs)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("numeric stats for column %d: %w", columnID, err)
	}
	defer rows.Close()

	var out []NumericChunkStats
	for rows.Next() {
		var s NumericChunkStats
		var hasNull, hasNaN int
		if err := rows.Scan(&s.ColumnID, &s.ChunkID, &s.Min, &s.Max, &hasNull, &hasNaN); err != nil {
			return nil, fmt.Errorf("scan numeric stats: %w", err)
		}
		s.HasNull = hasNull != 0
		s.HasNaN = hasNaN != 0
		out = append(out, s)
	}
	return out, rows.Err()
}

func literalStatsForChunks(ctx context.Context, q querier, columnID int64, chunkIDs []int64) ([]LiteralChunkStats, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}
	query, args := inClauseQuery(`
		SELECT column_id, chunk_id, min, max, has_null
		FROM column_chunk_literal
		WHERE column_id = ? AND chunk_id IN (%s)
	`, columnID, chunkIDs)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("literal stats for column %d: %w", columnID, err)
	}
	defer rows.Close()

	var out []LiteralChunkStats
	for rows.Next() {
		var s LiteralChunkStats
		var hasNull int
		if err := rows.Scan(&s.ColumnID, &s.ChunkID, &s.Min, &s.Max, &hasNull); err != nil {
			return nil, fmt.Errorf("scan literal stats: %w", err)
		}
		s.HasNull = hasNull != 0
		out = append(out, s)
	}
	return out, rows.Err()
}

// inClauseQuery expands a %s placeholder in format into the right number
// of "?" slots for an IN clause over ids, prefixed by leadArg.
func inClauseQuery(format string, leadArg int64, ids []int64) (string, []any) {
	placeholders := make([]byte, 0, len(ids)*2)
	args := make([]any, 0, len(ids)+1)
	args = append(args, leadArg)
	for i, id := range ids {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args = append(args, id)
	}
	return fmt.Sprintf(format, string(placeholders)), args
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (r *Repository) GetColumn(ctx context.Context, name, ontologyTag string) (*Column, error) {
	return getColumn(ctx, r.db, name, ontologyTag)
}
func (r *Repository) ListColumnsByOntologyTag(ctx context.Context, ontologyTag string) ([]Column, error) {
	return listColumnsByOntologyTag(ctx, r.db, ontologyTag)
}
func (r *Repository) NumericStatsForChunks(ctx context.Context, columnID int64, chunkIDs []int64) ([]NumericChunkStats, error) {
	return numericStatsForChunks(ctx, r.db, columnID, chunkIDs)
}
func (r *Repository) LiteralStatsForChunks(ctx context.Context, columnID int64, chunkIDs []int64) ([]LiteralChunkStats, error) {
	return literalStatsForChunks(ctx, r.db, columnID, chunkIDs)
}

func (t *Tx) UpsertColumn(ctx context.Context, name, ontologyTag string) (*Column, error) {
	return upsertColumn(ctx, t.tx, name, ontologyTag)
}
func (t *Tx) PutNumericChunkStats(ctx context.Context, s NumericChunkStats) error {
	return putNumericChunkStats(ctx, t.tx, s)
}
func (t *Tx) PutLiteralChunkStats(ctx context.Context, s LiteralChunkStats) error {
	return putLiteralChunkStats(ctx, t.tx, s)
}
