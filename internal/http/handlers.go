package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/zip-weather-service/internal/circuitbreaker"
	"github.com/kjstillabower/zip-weather-service/internal/lifecycle"
	"github.com/kjstillabower/zip-weather-service/internal/models"
	"github.com/kjstillabower/zip-weather-service/internal/observability"
	"github.com/kjstillabower/zip-weather-service/internal/traffic"
	"github.com/kjstillabower/zip-weather-service/internal/validation"
)

// MsgLookupFailed is the only body returned for upstream and transport failures.
const MsgLookupFailed = "Failed to retrieve weather data."

// TemperatureLookup resolves a validated postal code and scale to a reading.
type TemperatureLookup interface {
	CurrentTemperature(ctx context.Context, code models.PostalCode, scale models.Scale) (models.TemperatureReading, error)
}

// HealthConfig holds thresholds and probes for the health handler.
type HealthConfig struct {
	DegradedWindow   time.Duration
	DegradedErrorPct int
	// Breakers, when set, are reported in checks; any open breaker marks the service degraded.
	Breakers []*circuitbreaker.CircuitBreaker
	Version  string
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	lookup           TemperatureLookup
	tracker          *traffic.Tracker
	lifecycle        *lifecycle.State
	healthConfig     *HealthConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. healthConfig may be nil.
func NewHandler(
	lookup TemperatureLookup,
	tracker *traffic.Tracker,
	state *lifecycle.State,
	healthConfig *HealthConfig,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		lookup:       lookup,
		tracker:      tracker,
		lifecycle:    state,
		healthConfig: healthConfig,
		logger:       logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// GetLocationTemperature handles GET /locations/{zipCode}?scale=.
// Validation failures return 400 before any upstream call.
func (h *Handler) GetLocationTemperature(w http.ResponseWriter, r *http.Request) {
	code, err := validation.ValidatePostalCode(mux.Vars(r)["zipCode"])
	if err != nil {
		observability.RecordLookup("", "invalid")
		writeValidationError(w, err)
		return
	}

	scale, err := parseScaleParam(r)
	if err != nil {
		observability.RecordLookup("", "invalid")
		writeValidationError(w, err)
		return
	}

	reading, err := h.lookup.CurrentTemperature(r.Context(), code, scale)
	if err != nil {
		h.writeLookupError(w, r, scale, err)
		return
	}

	h.tracker.RecordSuccess()
	observability.RecordLookup(string(scale), "ok")
	writeJSON(w, http.StatusOK, reading)
}

// parseScaleParam reads the scale query parameter. Repeating it is invalid.
func parseScaleParam(r *http.Request) (models.Scale, error) {
	values, ok := r.URL.Query()["scale"]
	switch {
	case !ok || len(values) == 0:
		return validation.ParseScale("", false)
	case len(values) > 1:
		return "", models.ValidationError(validation.MsgInvalidScale)
	default:
		return validation.ParseScale(values[0], true)
	}
}

// writeLookupError maps a lookup failure by kind: NotFound surfaces the resolver
// message as 404, everything else becomes the generic 500.
func (h *Handler) writeLookupError(w http.ResponseWriter, r *http.Request, scale models.Scale, err error) {
	logger := observability.LoggerFromContext(r.Context())

	var e *models.Error
	if errors.As(err, &e) && e.Kind == models.KindNotFound {
		// an unknown postal code is a normal answer, not an upstream fault
		h.tracker.RecordSuccess()
		observability.RecordLookup(string(scale), "not_found")
		logger.Debug("postal code not found", zap.String("postal_code", string(e.PostalCode)))
		writeError(w, http.StatusNotFound, e.Message)
		return
	}

	h.tracker.RecordError()
	observability.RecordLookup(string(scale), "error")
	logger.Warn("temperature lookup failed",
		zap.String("kind", models.KindOf(err).String()),
		zap.Error(err))
	writeError(w, http.StatusInternalServerError, MsgLookupFailed)
}

func writeValidationError(w http.ResponseWriter, err error) {
	var e *models.Error
	if errors.As(err, &e) {
		writeError(w, http.StatusBadRequest, e.Message)
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := make(map[string]string)
	if result.status == "degraded" {
		checks["upstream"] = "unhealthy"
	} else {
		checks["upstream"] = "healthy"
	}
	version := "dev"
	if h.healthConfig != nil {
		for _, cb := range h.healthConfig.Breakers {
			checks["circuit_"+cb.Component()] = cb.State().String()
		}
		if h.healthConfig.Version != "" {
			version = h.healthConfig.Version
		}
	}

	writeJSON(w, result.statusCode, map[string]interface{}{
		"status":    result.status,
		"service":   "zip-weather-service",
		"version":   version,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > circuit open > error-rate degraded > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	if h.lifecycle != nil && h.lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	for _, cb := range h.healthConfig.Breakers {
		if cb.State() == circuitbreaker.StateOpen {
			return healthResult{"degraded", http.StatusServiceUnavailable, "circuit_open"}
		}
	}
	if h.healthConfig.DegradedWindow > 0 && h.healthConfig.DegradedErrorPct > 0 && h.tracker != nil {
		errCount, total := h.tracker.ErrorRate(h.healthConfig.DegradedWindow)
		if total > 0 {
			pct := float64(errCount) * 100 / float64(total)
			if pct >= float64(h.healthConfig.DegradedErrorPct) {
				return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
			}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the flat {"error": message} body used by every error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
