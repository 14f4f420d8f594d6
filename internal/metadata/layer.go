package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func createLayer(ctx context.Context, q querier, name, description string) (*Layer, error) {
	res, err := q.ExecContext(ctx, "INSERT INTO layer (name, description) VALUES (?, ?)", name, description)
	if err != nil {
		return nil, fmt.Errorf("create layer %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create layer %q: %w", name, err)
	}
	return &Layer{ID: id, Name: name, Description: description}, nil
}

func getLayerByName(ctx context.Context, q querier, name string) (*Layer, error) {
	row := q.QueryRowContext(ctx, "SELECT id, name, description FROM layer WHERE name = ?", name)

	var l Layer
	err := row.Scan(&l.ID, &l.Name, &l.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get layer %q: %w", name, err)
	}
	return &l, nil
}

func listLayers(ctx context.Context, q querier) ([]Layer, error) {
	rows, err := q.QueryContext(ctx, "SELECT id, name, description FROM layer ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list layers: %w", err)
	}
	defer rows.Close()

	var out []Layer
	for rows.Next() {
		var l Layer
		if err := rows.Scan(&l.ID, &l.Name, &l.Description); err != nil {
			return nil, fmt.Errorf("scan layer: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func updateLayerDescription(ctx context.Context, q querier, id int64, description string) error {
	res, err := q.ExecContext(ctx, "UPDATE layer SET description = ? WHERE id = ?", description, id)
	if err != nil {
		return fmt.Errorf("update layer %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update layer %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("layer %d not found", id)
	}
	return nil
}

func deleteLayer(ctx context.Context, q querier, id int64) error {
	_, err := q.ExecContext(ctx, "DELETE FROM layer WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete layer %d: %w", id, err)
	}
	return nil
}

func (r *Repository) GetLayerByName(ctx context.Context, name string) (*Layer, error) {
	return getLayerByName(ctx, r.db, name)
}
func (r *Repository) ListLayers(ctx context.Context) ([]Layer, error) {
	return listLayers(ctx, r.db)
}

func (t *Tx) CreateLayer(ctx context.Context, name, description string) (*Layer, error) {
	return createLayer(ctx, t.tx, name, description)
}
func (t *Tx) GetLayerByName(ctx context.Context, name string) (*Layer, error) {
	return getLayerByName(ctx, t.tx, name)
}
func (t *Tx) ListLayers(ctx context.Context) ([]Layer, error) {
	return listLayers(ctx, t.tx)
}
func (t *Tx) UpdateLayerDescription(ctx context.Context, id int64, description string) error {
	return updateLayerDescription(ctx, t.tx, id, description)
}
func (t *Tx) DeleteLayer(ctx context.Context, id int64) error {
	return deleteLayer(ctx, t.tx, id)
}
