package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/kjstillabower/zip-weather-service/internal/models"
	"github.com/kjstillabower/zip-weather-service/internal/observability"
)

// CoordinateResolver turns a validated postal code into coordinates.
type CoordinateResolver interface {
	ResolveCoordinates(ctx context.Context, code models.PostalCode) (models.Coordinates, error)
}

// TemperatureResolver reads the current temperature at coordinates in the given scale.
type TemperatureResolver interface {
	CurrentTemperature(ctx context.Context, coords models.Coordinates, scale models.Scale) (float64, error)
}

// LookupService chains the two resolvers. It holds no per-request state.
type LookupService struct {
	coordinates CoordinateResolver
	temperature TemperatureResolver
}

// NewLookupService creates a LookupService over the given resolvers.
func NewLookupService(coordinates CoordinateResolver, temperature TemperatureResolver) *LookupService {
	return &LookupService{
		coordinates: coordinates,
		temperature: temperature,
	}
}

// CurrentTemperature resolves code to coordinates, then reads the temperature
// there. The second call only happens when the first succeeds. Resolver errors
// are returned wrapped; their models.ErrorKind is preserved.
func (s *LookupService) CurrentTemperature(ctx context.Context, code models.PostalCode, scale models.Scale) (models.TemperatureReading, error) {
	ctx, span := otel.Tracer("github.com/kjstillabower/zip-weather-service/internal/service").Start(ctx, "lookup.current_temperature")
	defer span.End()
	span.SetAttributes(attribute.String("postal_code", string(code)), attribute.String("scale", string(scale)))

	start := time.Now()
	logger := observability.LoggerFromContext(ctx)

	coords, err := s.coordinates.ResolveCoordinates(ctx, code)
	if err != nil {
		span.SetStatus(codes.Error, "resolve coordinates")
		return models.TemperatureReading{}, fmt.Errorf("resolve coordinates for %s: %w", code, err)
	}
	logger.Debug("coordinates resolved",
		zap.String("postal_code", string(code)),
		zap.Float64("latitude", coords.Latitude),
		zap.Float64("longitude", coords.Longitude))

	temp, err := s.temperature.CurrentTemperature(ctx, coords, scale)
	if err != nil {
		span.SetStatus(codes.Error, "current temperature")
		return models.TemperatureReading{}, fmt.Errorf("current temperature for %s: %w", code, err)
	}

	logger.Debug("temperature served",
		zap.String("postal_code", string(code)),
		zap.String("scale", string(scale)),
		zap.Float64("temperature", temp),
		zap.Duration("duration", time.Since(start)))
	return models.TemperatureReading{Temperature: temp, Scale: scale}, nil
}
