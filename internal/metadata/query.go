package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// CandidateTopic is one row of a topic/sequence join, the shape every
// query-planner candidate-topic lookup returns regardless of whether it
// came from a filtered WHERE clause or an unfiltered full scan.
type CandidateTopic struct {
	TopicID      int64
	TopicUUID    uuid.UUID
	TopicName    string
	OntologyTag  string
	SequenceName string
}

func scanCandidateTopics(rows *sql.Rows) ([]CandidateTopic, error) {
	defer rows.Close()
	var out []CandidateTopic
	for rows.Next() {
		var c CandidateTopic
		var idStr string
		if err := rows.Scan(&c.TopicID, &idStr, &c.TopicName, &c.OntologyTag, &c.SequenceName); err != nil {
			return nil, fmt.Errorf("scan candidate topic: %w", err)
		}
		var err error
		c.TopicUUID, err = uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("scan candidate topic: parse uuid %q: %w", idStr, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// QueryCandidateTopics runs a planner-compiled candidate-topic SQL
// statement (queryfilter.BuildCandidateTopicQuery's output, which already
// selects topic.id/uuid/name/sequence_name) and scans its rows. The
// ontology_tag column is appended here rather than by the caller, since
// chunk pruning always needs it and every candidate-topic query joins
// through the topic table already.
func (r *Repository) QueryCandidateTopics(ctx context.Context, whereSQL string, args []any) ([]CandidateTopic, error) {
	query := "SELECT topic.id, topic.uuid, topic.name, topic.ontology_tag, sequence.name AS sequence_name " +
		"FROM topic JOIN sequence ON topic.sequence_id = sequence.id WHERE " + whereSQL
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidate topics: %w", err)
	}
	return scanCandidateTopics(rows)
}

// ListAllTopicsWithSequence returns every topic joined with its parent
// sequence's name, used when the planner's candidate-topic filter is
// empty and discovery must fall back to a full scan.
func (r *Repository) ListAllTopicsWithSequence(ctx context.Context) ([]CandidateTopic, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT topic.id, topic.uuid, topic.name, topic.ontology_tag, sequence.name AS sequence_name "+
			"FROM topic JOIN sequence ON topic.sequence_id = sequence.id ORDER BY topic.name")
	if err != nil {
		return nil, fmt.Errorf("list all topics: %w", err)
	}
	return scanCandidateTopics(rows)
}

// ChunksMatchingPrune resolves the chunks of topicID that satisfy a
// compiled chunk-pruning subquery, or every chunk of the topic when
// pruneSQL is empty (no ontology constraint could be range-pruned).
func (r *Repository) ChunksMatchingPrune(ctx context.Context, topicID int64, pruneSQL string, pruneArgs []any) ([]Chunk, error) {
	var rows *sql.Rows
	var err error
	if pruneSQL == "" {
		rows, err = r.db.QueryContext(ctx,
			"SELECT "+chunkColumns+" FROM chunk WHERE topic_id = ? ORDER BY id", topicID)
	} else {
		args := append([]any{topicID}, pruneArgs...)
		rows, err = r.db.QueryContext(ctx,
			"SELECT "+chunkColumns+" FROM chunk WHERE topic_id = ? AND id IN ("+pruneSQL+") ORDER BY id", args...)
	}
	if err != nil {
		return nil, fmt.Errorf("chunks matching prune for topic %d: %w", topicID, err)
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

// GetColumnID resolves a column's row id by (ontologyTag, field), the
// shape queryfilter.ColumnResolver needs. ok is false when no column was
// ever recorded, distinct from a query error.
func (r *Repository) GetColumnID(ctx context.Context, ontologyTag, field string) (int64, bool, error) {
	col, err := r.GetColumn(ctx, field, ontologyTag)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, false, err
	}
	if col == nil {
		return 0, false, nil
	}
	return col.ID, true, nil
}
