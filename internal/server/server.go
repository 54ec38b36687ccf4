package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/supplysnap/backend/internal/cache"
	"github.com/supplysnap/backend/internal/config"
	"github.com/supplysnap/backend/internal/model"
	"github.com/supplysnap/backend/internal/store"
)

// capturer is the slice of the aggregator the manual-save handler needs.
type capturer interface {
	Capture(ctx context.Context, now time.Time) (model.RawData, model.ProcessedData, error)
}

// trigger is the slice of the schedule engine the run handler needs.
type trigger interface {
	TriggerNow(scheduleName string) error
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	cfg      *config.Config
	cache    *cache.Cache
	store    store.Store
	capturer capturer
	trigger  trigger
}

func New(cfg *config.Config, cch *cache.Cache, st store.Store, c capturer, tr trigger) *Server {
	return &Server{cfg: cfg, cache: cch, store: st, capturer: c, trigger: tr}
}

// Router returns the HTTP handler with all routes registered.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/snapshots", s.handleCreate)
	mux.HandleFunc("GET /api/snapshots", s.handleRetrieve)
	mux.HandleFunc("GET /api/snapshots/available", s.handleAvailable)
	mux.HandleFunc("GET /api/snapshots/history/{periode}", s.handleHistory)
	mux.HandleFunc("GET /api/snapshots/{periode}", s.handleRetrieve)
	mux.HandleFunc("DELETE /api/snapshots", s.handleDeleteByDate)
	mux.HandleFunc("DELETE /api/snapshots/{id}", s.handleDeleteByID)
	mux.HandleFunc("POST /api/schedules/{name}/run", s.handleTriggerNow)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	return s.corsMiddleware(mux)
}
