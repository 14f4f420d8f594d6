package rpc

import (
	"log/slog"
	"net/http"

	"mosaico/internal/auth"
	"mosaico/internal/columnar"
	"mosaico/internal/facade"
	"mosaico/internal/logging"
	"mosaico/internal/metadata"
	"mosaico/internal/objectstore"
	"mosaico/internal/planner"
)

// Config bundles a Handlers set's collaborators.
type Config struct {
	Repo               *metadata.Repository
	Store              objectstore.Store
	Tokens             *auth.TokenService
	Now                facade.Clock // optional, defaults to time.Now
	TargetMessageBytes int64
	MaxChunkBytes      int64
	Logger             *slog.Logger
}

// Handlers implements the action/get-info/get-data/put-data/list-flights
// endpoints over a shared repository, object store, and columnar engine.
type Handlers struct {
	repo   *metadata.Repository
	store  objectstore.Store
	tokens *auth.TokenService
	plan   *planner.Planner
	eng    *columnar.Engine
	now    facade.Clock
	target int64
	maxChk int64
	logger *slog.Logger
}

// New constructs a Handlers set ready to be mounted on a mux.
func New(cfg Config) *Handlers {
	return &Handlers{
		repo:   cfg.Repo,
		store:  cfg.Store,
		tokens: cfg.Tokens,
		plan:   planner.New(cfg.Repo, cfg.Store),
		eng:    columnar.NewEngine(cfg.Store),
		now:    cfg.Now,
		target: cfg.TargetMessageBytes,
		maxChk: cfg.MaxChunkBytes,
		logger: logging.Default(cfg.Logger).With("component", "rpc"),
	}
}

func (h *Handlers) engine() *columnar.Engine { return h.eng }

// Mount registers every endpoint on mux, matching §4.10's paths.
func (h *Handlers) Mount(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/action", h.handleAction)
	mux.HandleFunc("POST /v1/get-info", h.handleGetInfo)
	mux.HandleFunc("GET /v1/get-data", h.handleGetData)
	mux.HandleFunc("POST /v1/put-data", h.handlePutData)
	mux.HandleFunc("GET /v1/list-flights", h.handleListFlights)
}

func (h *Handlers) sequenceFacade(name string) *facade.SequenceFacade {
	return facade.NewSequenceFacade(facade.SequenceFacadeConfig{Repo: h.repo, Store: h.store, Name: name, Now: h.now})
}

func (h *Handlers) topicFacade(name string) *facade.TopicFacade {
	return facade.NewTopicFacade(facade.TopicFacadeConfig{Repo: h.repo, Store: h.store, Name: name, Now: h.now})
}

func (h *Handlers) layerFacade() *facade.LayerFacade {
	return facade.NewLayerFacade(h.repo)
}
