package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kjstillabower/zip-weather-service/internal/circuitbreaker"
	"github.com/kjstillabower/zip-weather-service/internal/models"
)

const (
	// DefaultWeatherURL is the Open-Meteo API root.
	DefaultWeatherURL = "https://api.open-meteo.com"

	weatherProvider = "open_meteo"
	weatherOp       = "weather"
)

// WeatherClient reads current conditions from Open-Meteo.
type WeatherClient struct {
	up *upstream
}

// NewWeatherClient returns a client for baseURL (scheme and host, optional path prefix).
func NewWeatherClient(baseURL string, timeout time.Duration) (*WeatherClient, error) {
	up, err := newUpstream(weatherProvider, weatherOp, baseURL, timeout)
	if err != nil {
		return nil, err
	}
	return &WeatherClient{up: up}, nil
}

// SetCircuitBreaker guards all lookups with cb. Pass nil to disable.
func (c *WeatherClient) SetCircuitBreaker(cb *circuitbreaker.CircuitBreaker) {
	c.up.breaker = cb
}

type openMeteoResponse struct {
	CurrentWeather *struct {
		Temperature *float64 `json:"temperature"`
	} `json:"current_weather"`
}

// CurrentTemperature returns the current temperature at coords in scale's unit.
// The provider is always sent the lowercase unit token.
func (c *WeatherClient) CurrentTemperature(ctx context.Context, coords models.Coordinates, scale models.Scale) (float64, error) {
	q := url.Values{}
	q.Set("latitude", formatCoordinate(coords.Latitude))
	q.Set("longitude", formatCoordinate(coords.Longitude))
	q.Set("current_weather", "true")
	q.Set("temperature_unit", scale.Unit())
	reqURL := c.up.endpoint("/v1/forecast", q)

	var temperature float64
	err := c.up.get(ctx, "weather.current", reqURL, func(resp *http.Response) error {
		if !isSuccess(resp.StatusCode) {
			return upstreamStatusError(weatherOp, "weather", resp.StatusCode)
		}

		var body openMeteoResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return parseError(weatherOp, fmt.Errorf("decode response: %w", err))
		}
		if body.CurrentWeather == nil || body.CurrentWeather.Temperature == nil {
			return parseError(weatherOp, errors.New("response missing current_weather.temperature"))
		}
		temperature = *body.CurrentWeather.Temperature
		return nil
	},
		attribute.Float64("latitude", coords.Latitude),
		attribute.Float64("longitude", coords.Longitude),
		attribute.String("temperature_unit", scale.Unit()),
	)
	if err != nil {
		return 0, err
	}
	return temperature, nil
}

// formatCoordinate renders the shortest decimal form, e.g. 41.85 not 41.850000.
func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
