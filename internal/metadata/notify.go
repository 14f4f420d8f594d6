package metadata

import (
	"context"
	"fmt"
)

func addSequenceNotify(ctx context.Context, q querier, sequenceID int64, kind NotifyKind, msg string, createdUnixMs int64) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO sequence_notify (sequence_id, kind, msg, created_unix_ms)
		VALUES (?, ?, ?, ?)
	`, sequenceID, string(kind), msg, createdUnixMs)
	if err != nil {
		return fmt.Errorf("add sequence notify for %d: %w", sequenceID, err)
	}
	return nil
}

func addTopicNotify(ctx context.Context, q querier, topicID int64, kind NotifyKind, msg string, createdUnixMs int64) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO topic_notify (topic_id, kind, msg, created_unix_ms)
		VALUES (?, ?, ?, ?)
	`, topicID, string(kind), msg, createdUnixMs)
	if err != nil {
		return fmt.Errorf("add topic notify for %d: %w", topicID, err)
	}
	return nil
}

func listSequenceNotify(ctx context.Context, q querier, sequenceID int64) ([]Notify, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, kind, msg, created_unix_ms FROM sequence_notify WHERE sequence_id = ? ORDER BY created_unix_ms", sequenceID)
	if err != nil {
		return nil, fmt.Errorf("list sequence notify for %d: %w", sequenceID, err)
	}
	defer rows.Close()
	return scanNotifyRows(rows)
}

func listTopicNotify(ctx context.Context, q querier, topicID int64) ([]Notify, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, kind, msg, created_unix_ms FROM topic_notify WHERE topic_id = ? ORDER BY created_unix_ms", topicID)
	if err != nil {
		return nil, fmt.Errorf("list topic notify for %d: %w", topicID, err)
	}
	defer rows.Close()
	return scanNotifyRows(rows)
}

func scanNotifyRows(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]Notify, error) {
	var out []Notify
	for rows.Next() {
		var n Notify
		var kind string
		if err := rows.Scan(&n.ID, &kind, &n.Msg, &n.CreatedUnixMs); err != nil {
			return nil, fmt.Errorf("scan notify: %w", err)
		}
		n.Kind = NotifyKind(kind)
		out = append(out, n)
	}
	return out, rows.Err()
}

func purgeSequenceNotify(ctx context.Context, q querier, sequenceID int64) error {
	_, err := q.ExecContext(ctx, "DELETE FROM sequence_notify WHERE sequence_id = ?", sequenceID)
	if err != nil {
		return fmt.Errorf("purge sequence notify for %d: %w", sequenceID, err)
	}
	return nil
}

func purgeTopicNotify(ctx context.Context, q querier, topicID int64) error {
	_, err := q.ExecContext(ctx, "DELETE FROM topic_notify WHERE topic_id = ?", topicID)
	if err != nil {
		return fmt.Errorf("purge topic notify for %d: %w", topicID, err)
	}
	return nil
}

func (r *Repository) ListSequenceNotify(ctx context.Context, sequenceID int64) ([]Notify, error) {
	return listSequenceNotify(ctx, r.db, sequenceID)
}
func (r *Repository) ListTopicNotify(ctx context.Context, topicID int64) ([]Notify, error) {
	return listTopicNotify(ctx, r.db, topicID)
}

func (t *Tx) AddSequenceNotify(ctx context.Context, sequenceID int64, kind NotifyKind, msg string, createdUnixMs int64) error {
	return addSequenceNotify(ctx, t.tx, sequenceID, kind, msg, createdUnixMs)
}
func (t *Tx) AddTopicNotify(ctx context.Context, topicID int64, kind NotifyKind, msg string, createdUnixMs int64) error {
	return addTopicNotify(ctx, t.tx, topicID, kind, msg, createdUnixMs)
}
func (t *Tx) PurgeSequenceNotify(ctx context.Context, sequenceID int64) error {
	return purgeSequenceNotify(ctx, t.tx, sequenceID)
}
func (t *Tx) PurgeTopicNotify(ctx context.Context, topicID int64) error {
	return purgeTopicNotify(ctx, t.tx, topicID)
}
