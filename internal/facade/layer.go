package facade

import (
	"context"

	"mosaico/internal/metadata"
	"mosaico/internal/mosaicoerr"
)

// LayerFacade provides CRUD over layers, a flat named grouping with no
// lock state or blob subtree of its own.
type LayerFacade struct {
	repo *metadata.Repository
}

func NewLayerFacade(repo *metadata.Repository) *LayerFacade {
	return &LayerFacade{repo: repo}
}

// Create inserts a layer row, refusing if the name is already taken.
func (f *LayerFacade) Create(ctx context.Context, name, description string) (*metadata.Layer, error) {
	existing, err := f.repo.GetLayerByName(ctx, name)
	if err != nil {
		return nil, mosaicoerr.New(mosaicoerr.Internal, err)
	}
	if existing != nil {
		return nil, mosaicoerr.Newf(mosaicoerr.AlreadyExists, "layer %q already exists", name)
	}

	var layer *metadata.Layer
	err = f.repo.WithTx(ctx, func(tx *metadata.Tx) error {
		var err error
		layer, err = tx.CreateLayer(ctx, name, description)
		return err
	})
	if err != nil {
		return nil, mosaicoerr.New(mosaicoerr.Internal, err)
	}
	return layer, nil
}

// Get looks up a layer by name.
func (f *LayerFacade) Get(ctx context.Context, name string) (*metadata.Layer, error) {
	layer, err := f.repo.GetLayerByName(ctx, name)
	if err != nil {
		return nil, mosaicoerr.New(mosaicoerr.Internal, err)
	}
	if layer == nil {
		return nil, mosaicoerr.Newf(mosaicoerr.NotFound, "layer %q not found", name)
	}
	return layer, nil
}

// List returns every layer.
func (f *LayerFacade) List(ctx context.Context) ([]metadata.Layer, error) {
	out, err := f.repo.ListLayers(ctx)
	if err != nil {
		return nil, mosaicoerr.New(mosaicoerr.Internal, err)
	}
	return out, nil
}

// Update changes a layer's description.
func (f *LayerFacade) Update(ctx context.Context, name, description string) (*metadata.Layer, error) {
	layer, err := f.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	err = f.repo.WithTx(ctx, func(tx *metadata.Tx) error {
		return tx.UpdateLayerDescription(ctx, layer.ID, description)
	})
	if err != nil {
		return nil, mosaicoerr.New(mosaicoerr.Internal, err)
	}
	layer.Description = description
	return layer, nil
}

// Delete removes a layer. The default layer may be deleted like any
// other; NewRepository recreates it on next startup if still absent.
func (f *LayerFacade) Delete(ctx context.Context, name string) error {
	layer, err := f.Get(ctx, name)
	if err != nil {
		return err
	}
	err = f.repo.WithTx(ctx, func(tx *metadata.Tx) error {
		return tx.DeleteLayer(ctx, layer.ID)
	})
	if err != nil {
		return mosaicoerr.New(mosaicoerr.Internal, err)
	}
	return nil
}
