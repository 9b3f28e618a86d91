package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	"github.com/kjstillabower/zip-weather-service/internal/models"
	"github.com/kjstillabower/zip-weather-service/internal/observability"
)

func TestMiddleware_ThroughHandler(t *testing.T) {
	lookup := &mockLookup{reading: models.TemperatureReading{Temperature: 12.0}}
	h, _, _ := newTestHandler(lookup, nil, nil)

	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(zap.NewNop()))
	router.Use(MetricsMiddleware(&InFlightTracker{}))
	router.HandleFunc("/locations/{zipCode}", h.GetLocationTemperature)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/locations/97201", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Header().Get("X-Correlation-ID") == "" {
		t.Error("X-Correlation-ID header missing")
	}
}

func TestMiddleware_CorrelationIDPropagated(t *testing.T) {
	var seen string
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(zap.NewNop()))
	router.HandleFunc("/x", func(w http.ResponseWriter, r *http.Request) {
		seen = observability.CorrelationIDFromContext(r.Context())
	})

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("X-Correlation-ID", "client-provided-id")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Correlation-ID"); got != "client-provided-id" {
		t.Errorf("X-Correlation-ID = %q, want client-provided-id", got)
	}
	if seen != "client-provided-id" {
		t.Errorf("context correlation id = %q, want client-provided-id", seen)
	}
}

func TestMiddleware_MetricsRecordsRouteTemplate(t *testing.T) {
	lookup := &mockLookup{}
	h, _, _ := newTestHandler(lookup, nil, nil)

	router := mux.NewRouter()
	router.Use(MetricsMiddleware(&InFlightTracker{}))
	router.HandleFunc("/locations/{zipCode}", h.GetLocationTemperature)

	counter := observability.HTTPRequestsTotal.WithLabelValues("GET", "/locations/{zipCode}", "4xx")
	before := testutil.ToFloat64(counter)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/locations/abc", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("httpRequestsTotal{route=/locations/{zipCode},status=4xx} delta = %v, want 1", got)
	}
}

func TestMiddleware_MetricsTracksInFlight(t *testing.T) {
	inflight := &InFlightTracker{}
	var during int64
	router := mux.NewRouter()
	router.Use(MetricsMiddleware(inflight))
	router.HandleFunc("/x", func(w http.ResponseWriter, r *http.Request) {
		during = inflight.Count()
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/x", nil))

	if during != 1 {
		t.Errorf("in-flight during request = %d, want 1", during)
	}
	if got := inflight.Count(); got != 0 {
		t.Errorf("in-flight after request = %d, want 0", got)
	}
}

func TestTimeoutMiddleware_SetsDeadline(t *testing.T) {
	var hasDeadline bool
	handler := TimeoutMiddleware(50 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if !hasDeadline {
		t.Error("request context has no deadline")
	}
}

// TestTimeoutMiddleware_LookupFailsWith500 verifies an expired deadline surfaces as
// the generic lookup failure.
func TestTimeoutMiddleware_LookupFailsWith500(t *testing.T) {
	h, _, _ := newTestHandler(blockingLookup{}, nil, nil)

	router := mux.NewRouter()
	router.Use(TimeoutMiddleware(10 * time.Millisecond))
	router.HandleFunc("/locations/{zipCode}", h.GetLocationTemperature)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/locations/97201", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

type blockingLookup struct{}

func (blockingLookup) CurrentTemperature(ctx context.Context, _ models.PostalCode, _ models.Scale) (models.TemperatureReading, error) {
	<-ctx.Done()
	return models.TemperatureReading{}, ctx.Err()
}

func TestTracingMiddleware_ContinuesInboundTrace(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})

	router := mux.NewRouter()
	router.Use(TracingMiddleware)
	router.HandleFunc("/locations/{zipCode}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	req := httptest.NewRequest("GET", "/locations/97201", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	router.ServeHTTP(httptest.NewRecorder(), req)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	span := spans[0]
	if span.Name() != "GET /locations/{zipCode}" {
		t.Errorf("span name = %q", span.Name())
	}
	if got := span.SpanContext().TraceID().String(); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("trace id = %s, want inbound trace id", got)
	}
	if span.Status().Code.String() != "Error" {
		t.Errorf("span status = %v, want Error for 5xx", span.Status().Code)
	}
}

func TestGetRoute_Fallback(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/health", "/health"},
		{"/metrics", "/metrics"},
		{"/locations/12345", "/locations/{zipCode}"},
		{"/nope", "other"},
	}
	for _, tt := range tests {
		if got := getRoute(httptest.NewRequest("GET", tt.path, nil)); got != tt.want {
			t.Errorf("getRoute(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
