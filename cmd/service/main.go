package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/kjstillabower/zip-weather-service/internal/circuitbreaker"
	"github.com/kjstillabower/zip-weather-service/internal/client"
	"github.com/kjstillabower/zip-weather-service/internal/config"
	httphandler "github.com/kjstillabower/zip-weather-service/internal/http"
	"github.com/kjstillabower/zip-weather-service/internal/lifecycle"
	"github.com/kjstillabower/zip-weather-service/internal/observability"
	"github.com/kjstillabower/zip-weather-service/internal/service"
	"github.com/kjstillabower/zip-weather-service/internal/traffic"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	tp, err := observability.NewTracerProvider(observability.TracingConfig{
		ZipkinURL:      cfg.ZipkinURL,
		ServiceName:    cfg.ServiceName,
		ServiceVersion: version,
	}, logger)
	if err != nil {
		logger.Fatal("tracer provider", zap.Error(err))
	}

	geocodeClient, err := client.NewGeocodeClient(cfg.GeocodeAPIURL, cfg.GeocodeAPITimeout)
	if err != nil {
		logger.Fatal("geocode client", zap.Error(err))
	}
	weatherClient, err := client.NewWeatherClient(cfg.WeatherAPIURL, cfg.WeatherAPITimeout)
	if err != nil {
		logger.Fatal("weather client", zap.Error(err))
	}

	var breakers []*circuitbreaker.CircuitBreaker
	if cfg.CircuitBreakerEnabled {
		geocodeBreaker := newBreaker(cfg, "zippopotam", logger)
		weatherBreaker := newBreaker(cfg, "open_meteo", logger)
		geocodeClient.SetCircuitBreaker(geocodeBreaker)
		weatherClient.SetCircuitBreaker(weatherBreaker)
		breakers = append(breakers, geocodeBreaker, weatherBreaker)
		logger.Info("circuit breakers enabled",
			zap.Int("failure_threshold", cfg.CircuitBreakerFailureThreshold),
			zap.Duration("timeout", cfg.CircuitBreakerTimeout))
	}

	lookupService := service.NewLookupService(geocodeClient, weatherClient)

	state := &lifecycle.State{}
	inFlight := &httphandler.InFlightTracker{}
	handler := httphandler.NewHandler(
		lookupService,
		traffic.NewTracker(clockwork.NewRealClock()),
		state,
		&httphandler.HealthConfig{
			DegradedWindow:   cfg.DegradedWindow,
			DegradedErrorPct: cfg.DegradedErrorPct,
			Breakers:         breakers,
			Version:          version,
		},
		logger,
	)
	router := httphandler.NewRouter(handler, httphandler.RouterConfig{
		Logger:         logger,
		InFlight:       inFlight,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	state.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight.Count()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.InFlightTimeout)
	defer waitCancel()
	if err := inFlight.Drain(waitCtx, cfg.InFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", inFlight.Count()))
	}

	logger.Info("shutdown complete")
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	if err := observability.FlushTelemetry(flushCtx, logger, tp); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry flush: %v\n", err)
	}
}

// newBreaker builds a per-provider breaker whose transitions feed the metrics and the log.
func newBreaker(cfg *config.Config, component string, logger *zap.Logger) *circuitbreaker.CircuitBreaker {
	observability.CircuitBreakerState.WithLabelValues(component).Set(0)
	return circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.CircuitBreakerFailureThreshold,
		SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
		Timeout:          cfg.CircuitBreakerTimeout,
		Component:        component,
		OnStateChange: func(component string, from, to circuitbreaker.State) {
			observability.RecordCircuitBreakerTransition(component, from.String(), to.String(), int(to))
			logger.Warn("circuit breaker state change",
				zap.String("component", component),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}
