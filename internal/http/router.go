package http

import (
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/zip-weather-service/internal/observability"
)

// RouterConfig carries the per-process pieces the router needs besides the Handler.
type RouterConfig struct {
	Logger         *zap.Logger
	InFlight       *InFlightTracker
	RequestTimeout time.Duration // 0 disables the per-request deadline
}

// NewRouter composes the single application handler: middleware chain,
// /health, /metrics and GET /locations/{zipCode}.
func NewRouter(h *Handler, cfg RouterConfig) *mux.Router {
	if cfg.InFlight == nil {
		cfg.InFlight = &InFlightTracker{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(cfg.Logger))
	router.Use(TracingMiddleware)
	router.Use(MetricsMiddleware(cfg.InFlight))
	router.HandleFunc("/health", h.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())

	locations := router.PathPrefix("/locations").Subrouter()
	if cfg.RequestTimeout > 0 {
		locations.Use(TimeoutMiddleware(cfg.RequestTimeout))
	}
	locations.HandleFunc("/{zipCode}", h.GetLocationTemperature).Methods("GET")
	return router
}
