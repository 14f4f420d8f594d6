package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

func createChunk(ctx context.Context, q querier, topicID int64, dataFilePath string) (*Chunk, error) {
	id := uuid.New()

	res, err := q.ExecContext(ctx, `
		INSERT INTO chunk (uuid, topic_id, data_file_path)
		VALUES (?, ?, ?)
	`, id.String(), topicID, dataFilePath)
	if err != nil {
		return nil, fmt.Errorf("create chunk for topic %d: %w", topicID, err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create chunk for topic %d: %w", topicID, err)
	}

	return &Chunk{ID: rowID, UUID: id, TopicID: topicID, DataFilePath: dataFilePath}, nil
}

const chunkColumns = "id, uuid, topic_id, data_file_path"

func scanChunk(row interface{ Scan(...any) error }) (*Chunk, error) {
	var c Chunk
	var idStr string
	err := row.Scan(&c.ID, &idStr, &c.TopicID, &c.DataFilePath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan chunk: %w", err)
	}
	c.UUID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("scan chunk: parse uuid %q: %w", idStr, err)
	}
	return &c, nil
}

func getChunkByUUID(ctx context.Context, q querier, id uuid.UUID) (*Chunk, error) {
	row := q.QueryRowContext(ctx, "SELECT "+chunkColumns+" FROM chunk WHERE uuid = ?", id.String())
	return scanChunk(row)
}

func listChunksByTopic(ctx context.Context, q querier, topicID int64) ([]Chunk, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+chunkColumns+" FROM chunk WHERE topic_id = ? ORDER BY id", topicID)
	if err != nil {
		return nil, fmt.Errorf("list chunks for topic %d: %w", topicID, err)
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func deleteChunk(ctx context.Context, q querier, id int64) error {
	_, err := q.ExecContext(ctx, "DELETE FROM chunk WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete chunk %d: %w", id, err)
	}
	return nil
}

func (r *Repository) GetChunkByUUID(ctx context.Context, id uuid.UUID) (*Chunk, error) {
	return getChunkByUUID(ctx, r.db, id)
}
func (r *Repository) ListChunksByTopic(ctx context.Context, topicID int64) ([]Chunk, error) {
	return listChunksByTopic(ctx, r.db, topicID)
}

func (t *Tx) CreateChunk(ctx context.Context, topicID int64, dataFilePath string) (*Chunk, error) {
	return createChunk(ctx, t.tx, topicID, dataFilePath)
}
func (t *Tx) GetChunkByUUID(ctx context.Context, id uuid.UUID) (*Chunk, error) {
	return getChunkByUUID(ctx, t.tx, id)
}
func (t *Tx) ListChunksByTopic(ctx context.Context, topicID int64) ([]Chunk, error) {
	return listChunksByTopic(ctx, t.tx, topicID)
}
func (t *Tx) DeleteChunk(ctx context.Context, id int64) error {
	return deleteChunk(ctx, t.tx, id)
}
