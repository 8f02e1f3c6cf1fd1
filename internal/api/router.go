// Package api exposes the scheduling engine's trigger surface and booking
// operations as an HTTP JSON API.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/signalsfoundry/groundstation-scheduler/core/availability"
	"github.com/signalsfoundry/groundstation-scheduler/core/booking"
	"github.com/signalsfoundry/groundstation-scheduler/internal/logging"
	"github.com/signalsfoundry/groundstation-scheduler/kb"
	"github.com/signalsfoundry/groundstation-scheduler/model"
)

// Server holds the handler dependencies.
type Server struct {
	engine *booking.Manager
	avail  *availability.Manager
	store  kb.Store
	log    logging.Logger
}

// Config assembles the router.
type Config struct {
	Engine       *booking.Manager
	Availability *availability.Manager
	Store        kb.Store
	Log          logging.Logger

	RateLimitPerSec float64
	RateLimitBurst  int

	// Middleware is appended after the built-in middleware, used to hook
	// in metrics.
	Middleware []func(http.Handler) http.Handler

	// MetricsHandler, when set, is mounted at /metrics.
	MetricsHandler http.Handler
}

// NewRouter wires the full API surface.
func NewRouter(cfg Config) http.Handler {
	log := cfg.Log
	if log == nil {
		log = logging.Noop()
	}
	s := &Server{
		engine: cfg.Engine,
		avail:  cfg.Availability,
		store:  cfg.Store,
		log:    log,
	}

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	if cfg.RateLimitPerSec > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = int(cfg.RateLimitPerSec)
		}
		r.Use(RateLimitMiddleware(cfg.RateLimitPerSec, burst))
	}
	for _, mw := range cfg.Middleware {
		r.Use(mw)
	}

	r.Get("/health", s.health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/groundstations", s.createGroundStation)
		r.Get("/groundstations", s.listGroundStations)
		r.Get("/groundstations/{id}/availability", s.groundStationAvailability)
		r.Get("/groundstations/{id}/slots", s.operationalSlots(booking.PartyGroundStation))
		r.Get("/groundstations/{id}/changes", s.changes(booking.PartyGroundStation))

		r.Post("/spacecraft", s.createSpacecraft)
		r.Get("/spacecraft", s.listSpacecraft)
		r.Get("/spacecraft/{id}/slots", s.operationalSlots(booking.PartySpacecraft))
		r.Get("/spacecraft/{id}/changes", s.changes(booking.PartySpacecraft))

		r.Post("/rules", s.addRule)
		r.Delete("/rules/{id}", s.removeRule)

		r.Post("/groundstation-channels", s.createGroundStationChannel)
		r.Put("/groundstation-channels/{id}", s.updateGroundStationChannel)
		r.Delete("/groundstation-channels/{id}", s.deleteGroundStationChannel)

		r.Post("/spacecraft-channels", s.createSpacecraftChannel)
		r.Put("/spacecraft-channels/{id}", s.updateSpacecraftChannel)
		r.Delete("/spacecraft-channels/{id}", s.deleteSpacecraftChannel)

		r.Post("/slots/select", s.batchTransition(func(r *http.Request, ids []string) ([]*model.OperationalSlot, error) {
			return s.engine.Select(r.Context(), ids)
		}))
		r.Post("/slots/confirm", s.batchTransition(func(r *http.Request, ids []string) ([]*model.OperationalSlot, error) {
			return s.engine.Confirm(r.Context(), ids)
		}))
		r.Post("/slots/deny", s.batchTransition(func(r *http.Request, ids []string) ([]*model.OperationalSlot, error) {
			return s.engine.Deny(r.Context(), ids)
		}))
		r.Post("/slots/cancel", s.cancel)

		r.Post("/propagate", s.propagate)
	})

	return r
}
