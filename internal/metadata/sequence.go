package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

func createSequence(ctx context.Context, q querier, name string, createdUnixMs int64, userMetadata json.RawMessage) (*Sequence, error) {
	if len(userMetadata) == 0 {
		userMetadata = json.RawMessage("{}")
	}
	id := uuid.New()

	res, err := q.ExecContext(ctx, `
		INSERT INTO sequence (uuid, name, locked, created_unix_ms, user_metadata_json)
		VALUES (?, ?, 0, ?, ?)
	`, id.String(), name, createdUnixMs, string(userMetadata))
	if err != nil {
		return nil, fmt.Errorf("create sequence %q: %w", name, err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create sequence %q: %w", name, err)
	}

	return &Sequence{
		ID:            rowID,
		UUID:          id,
		Name:          name,
		Locked:        false,
		CreatedUnixMs: createdUnixMs,
		UserMetadata:  userMetadata,
	}, nil
}

const sequenceColumns = "id, uuid, name, locked, created_unix_ms, user_metadata_json"

func scanSequence(row interface{ Scan(...any) error }) (*Sequence, error) {
	var s Sequence
	var idStr, meta string
	var locked int
	err := row.Scan(&s.ID, &idStr, &s.Name, &locked, &s.CreatedUnixMs, &meta)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan sequence: %w", err)
	}
	s.UUID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("scan sequence: parse uuid %q: %w", idStr, err)
	}
	s.Locked = locked != 0
	s.UserMetadata = json.RawMessage(meta)
	return &s, nil
}

func getSequenceByName(ctx context.Context, q querier, name string) (*Sequence, error) {
	row := q.QueryRowContext(ctx, "SELECT "+sequenceColumns+" FROM sequence WHERE name = ?", name)
	return scanSequence(row)
}

func getSequenceByUUID(ctx context.Context, q querier, id uuid.UUID) (*Sequence, error) {
	row := q.QueryRowContext(ctx, "SELECT "+sequenceColumns+" FROM sequence WHERE uuid = ?", id.String())
	return scanSequence(row)
}

func getSequenceByID(ctx context.Context, q querier, id int64) (*Sequence, error) {
	row := q.QueryRowContext(ctx, "SELECT "+sequenceColumns+" FROM sequence WHERE id = ?", id)
	return scanSequence(row)
}

func listSequences(ctx context.Context, q querier) ([]Sequence, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+sequenceColumns+" FROM sequence ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list sequences: %w", err)
	}
	defer rows.Close()

	var out []Sequence
	for rows.Next() {
		s, err := scanSequence(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// setSequenceLocked writes the locked flag. It does not itself forbid
// 1->0; the monotonic transition is enforced upstream by the facade
// layer, whose callers only ever move locked 0->1.
func setSequenceLocked(ctx context.Context, q querier, id int64, locked bool) error {
	v := 0
	if locked {
		v = 1
	}
	res, err := q.ExecContext(ctx, "UPDATE sequence SET locked = ? WHERE id = ?", v, id)
	if err != nil {
		return fmt.Errorf("set sequence %d locked=%v: %w", id, locked, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set sequence %d locked=%v: %w", id, locked, err)
	}
	if n == 0 {
		return fmt.Errorf("sequence %d not found", id)
	}
	return nil
}

func deleteSequence(ctx context.Context, q querier, id int64) error {
	_, err := q.ExecContext(ctx, "DELETE FROM sequence WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete sequence %d: %w", id, err)
	}
	return nil
}

func (r *Repository) GetSequenceByName(ctx context.Context, name string) (*Sequence, error) {
	return getSequenceByName(ctx, r.db, name)
}
func (r *Repository) GetSequenceByUUID(ctx context.Context, id uuid.UUID) (*Sequence, error) {
	return getSequenceByUUID(ctx, r.db, id)
}
func (r *Repository) GetSequenceByID(ctx context.Context, id int64) (*Sequence, error) {
	return getSequenceByID(ctx, r.db, id)
}
func (r *Repository) ListSequences(ctx context.Context) ([]Sequence, error) {
	return listSequences(ctx, r.db)
}

func (t *Tx) CreateSequence(ctx context.Context, name string, createdUnixMs int64, userMetadata json.RawMessage) (*Sequence, error) {
	return createSequence(ctx, t.tx, name, createdUnixMs, userMetadata)
}
func (t *Tx) GetSequenceByName(ctx context.Context, name string) (*Sequence, error) {
	return getSequenceByName(ctx, t.tx, name)
}
func (t *Tx) GetSequenceByUUID(ctx context.Context, id uuid.UUID) (*Sequence, error) {
	return getSequenceByUUID(ctx, t.tx, id)
}
func (t *Tx) GetSequenceByID(ctx context.Context, id int64) (*Sequence, error) {
	return getSequenceByID(ctx, t.tx, id)
}
func (t *Tx) ListSequences(ctx context.Context) ([]Sequence, error) {
	return listSequences(ctx, t.tx)
}
func (t *Tx) SetSequenceLocked(ctx context.Context, id int64, locked bool) error {
	return setSequenceLocked(ctx, t.tx, id, locked)
}
func (t *Tx) DeleteSequence(ctx context.Context, id int64) error {
	return deleteSequence(ctx, t.tx, id)
}
