package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

func createTopic(ctx context.Context, q querier, sequenceID int64, name, serializationFormat, ontologyTag string, createdUnixMs int64, userMetadata json.RawMessage) (*Topic, error) {
	if len(userMetadata) == 0 {
		userMetadata = json.RawMessage("{}")
	}
	id := uuid.New()

	res, err := q.ExecContext(ctx, `
		INSERT INTO topic (uuid, sequence_id, name, serialization_format, ontology_tag, locked, created_unix_ms, user_metadata_json)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)
	`, id.String(), sequenceID, name, serializationFormat, ontologyTag, createdUnixMs, string(userMetadata))
	if err != nil {
		return nil, fmt.Errorf("create topic %q: %w", name, err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create topic %q: %w", name, err)
	}

	return &Topic{
		ID:                  rowID,
		UUID:                id,
		SequenceID:          sequenceID,
		Name:                name,
		SerializationFormat: serializationFormat,
		OntologyTag:         ontologyTag,
		Locked:              false,
		CreatedUnixMs:       createdUnixMs,
		UserMetadata:        userMetadata,
	}, nil
}

const topicColumns = "id, uuid, sequence_id, name, serialization_format, ontology_tag, locked, created_unix_ms, user_metadata_json"

func scanTopic(row interface{ Scan(...any) error }) (*Topic, error) {
	var t Topic
	var idStr, meta string
	var locked int
	err := row.Scan(&t.ID, &idStr, &t.SequenceID, &t.Name, &t.SerializationFormat, &t.OntologyTag, &locked, &t.CreatedUnixMs, &meta)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan topic: %w", err)
	}
	t.UUID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("scan topic: parse uuid %q: %w", idStr, err)
	}
	t.Locked = locked != 0
	t.UserMetadata = json.RawMessage(meta)
	return &t, nil
}

func getTopicByName(ctx context.Context, q querier, name string) (*Topic, error) {
	row := q.QueryRowContext(ctx, "SELECT "+topicColumns+" FROM topic WHERE name = ?", name)
	return scanTopic(row)
}

func getTopicByUUID(ctx context.Context, q querier, id uuid.UUID) (*Topic, error) {
	row := q.QueryRowContext(ctx, "SELECT "+topicColumns+" FROM topic WHERE uuid = ?", id.String())
	return scanTopic(row)
}

func listTopicsBySequence(ctx context.Context, q querier, sequenceID int64) ([]Topic, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+topicColumns+" FROM topic WHERE sequence_id = ? ORDER BY name", sequenceID)
	if err != nil {
		return nil, fmt.Errorf("list topics for sequence %d: %w", sequenceID, err)
	}
	defer rows.Close()

	var out []Topic
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// countUnlockedTopics supports the facade's lock-sequence invariant: a
// sequence may be locked only when every child topic is already locked.
func countUnlockedTopics(ctx context.Context, q querier, sequenceID int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT count(*) FROM topic WHERE sequence_id = ? AND locked = 0", sequenceID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unlocked topics for sequence %d: %w", sequenceID, err)
	}
	return n, nil
}

func setTopicLocked(ctx context.Context, q querier, id int64, locked bool) error {
	v := 0
	if locked {
		v = 1
	}
	res, err := q.ExecContext(ctx, "UPDATE topic SET locked = ? WHERE id = ?", v, id)
	if err != nil {
		return fmt.Errorf("set topic %d locked=%v: %w", id, locked, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set topic %d locked=%v: %w", id, locked, err)
	}
	if n == 0 {
		return fmt.Errorf("topic %d not found", id)
	}
	return nil
}

func updateTopicProperties(ctx context.Context, q querier, id int64, serializationFormat, ontologyTag string, userMetadata json.RawMessage) error {
	if len(userMetadata) == 0 {
		userMetadata = json.RawMessage("{}")
	}
	res, err := q.ExecContext(ctx, `
		UPDATE topic SET serialization_format = ?, ontology_tag = ?, user_metadata_json = ?
		WHERE id = ?
	`, serializationFormat, ontologyTag, string(userMetadata), id)
	if err != nil {
		return fmt.Errorf("update topic %d properties: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update topic %d properties: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("topic %d not found", id)
	}
	return nil
}

func deleteTopic(ctx context.Context, q querier, id int64) error {
	_, err := q.ExecContext(ctx, "DELETE FROM topic WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete topic %d: %w", id, err)
	}
	return nil
}

func (r *Repository) GetTopicByName(ctx context.Context, name string) (*Topic, error) {
	return getTopicByName(ctx, r.db, name)
}
func (r *Repository) GetTopicByUUID(ctx context.Context, id uuid.UUID) (*Topic, error) {
	return getTopicByUUID(ctx, r.db, id)
}
func (r *Repository) ListTopicsBySequence(ctx context.Context, sequenceID int64) ([]Topic, error) {
	return listTopicsBySequence(ctx, r.db, sequenceID)
}
func (r *Repository) CountUnlockedTopics(ctx context.Context, sequenceID int64) (int, error) {
	return countUnlockedTopics(ctx, r.db, sequenceID)
}

func (t *Tx) CreateTopic(ctx context.Context, sequenceID int64, name, serializationFormat, ontologyTag string, createdUnixMs int64, userMetadata json.RawMessage) (*Topic, error) {
	return createTopic(ctx, t.tx, sequenceID, name, serializationFormat, ontologyTag, createdUnixMs, userMetadata)
}
func (t *Tx) GetTopicByName(ctx context.Context, name string) (*Topic, error) {
	return getTopicByName(ctx, t.tx, name)
}
func (t *Tx) GetTopicByUUID(ctx context.Context, id uuid.UUID) (*Topic, error) {
	return getTopicByUUID(ctx, t.tx, id)
}
func (t *Tx) ListTopicsBySequence(ctx context.Context, sequenceID int64) ([]Topic, error) {
	return listTopicsBySequence(ctx, t.tx, sequenceID)
}
func (t *Tx) CountUnlockedTopics(ctx context.Context, sequenceID int64) (int, error) {
	return countUnlockedTopics(ctx, t.tx, sequenceID)
}
func (t *Tx) SetTopicLocked(ctx context.Context, id int64, locked bool) error {
	return setTopicLocked(ctx, t.tx, id, locked)
}
func (t *Tx) UpdateTopicProperties(ctx context.Context, id int64, serializationFormat, ontologyTag string, userMetadata json.RawMessage) error {
	return updateTopicProperties(ctx, t.tx, id, serializationFormat, ontologyTag, userMetadata)
}
func (t *Tx) DeleteTopic(ctx context.Context, id int64) error {
	return deleteTopic(ctx, t.tx, id)
}
