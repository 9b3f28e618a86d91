package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kjstillabower/zip-weather-service/internal/circuitbreaker"
	"github.com/kjstillabower/zip-weather-service/internal/models"
)

const (
	// DefaultGeocodeURL is the Zippopotam.us API root.
	DefaultGeocodeURL = "https://api.zippopotam.us"

	geocodeProvider = "zippopotam"
	geocodeOp       = "geocode"
)

// GeocodeClient resolves US postal codes to coordinates via Zippopotam.us.
type GeocodeClient struct {
	up *upstream
}

// NewGeocodeClient returns a client for baseURL (scheme and host, optional path prefix).
// timeout bounds each request including reading the body.
func NewGeocodeClient(baseURL string, timeout time.Duration) (*GeocodeClient, error) {
	up, err := newUpstream(geocodeProvider, geocodeOp, baseURL, timeout)
	if err != nil {
		return nil, err
	}
	return &GeocodeClient{up: up}, nil
}

// SetCircuitBreaker guards all lookups with cb. Pass nil to disable.
func (c *GeocodeClient) SetCircuitBreaker(cb *circuitbreaker.CircuitBreaker) {
	c.up.breaker = cb
}

type zippopotamResponse struct {
	PostCode string `json:"post code"`
	Places   []struct {
		PlaceName string `json:"place name"`
		State     string `json:"state abbreviation"`
		Latitude  string `json:"latitude"`
		Longitude string `json:"longitude"`
	} `json:"places"`
}

// ResolveCoordinates looks up code, which must already be a valid PostalCode.
// Returns a KindNotFound error when the provider answers 404,
// KindUpstream for other non-success answers or unusable bodies (including no places), and
// KindTransport when no response was received.
func (c *GeocodeClient) ResolveCoordinates(ctx context.Context, code models.PostalCode) (models.Coordinates, error) {
	var coords models.Coordinates
	reqURL := c.up.endpoint("/us/"+string(code), nil)

	err := c.up.get(ctx, "geocode.resolve", reqURL, func(resp *http.Response) error {
		if resp.StatusCode == http.StatusNotFound {
			return models.NotFoundError(geocodeOp, code)
		}
		if !isSuccess(resp.StatusCode) {
			return upstreamStatusError(geocodeOp, "geocoding", resp.StatusCode)
		}

		var body zippopotamResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return parseError(geocodeOp, fmt.Errorf("decode response: %w", err))
		}
		if len(body.Places) == 0 {
			return parseError(geocodeOp, errors.New("response has no places"))
		}

		place := body.Places[0]
		lat, err := strconv.ParseFloat(place.Latitude, 64)
		if err != nil {
			return parseError(geocodeOp, fmt.Errorf("parse latitude %q: %w", place.Latitude, err))
		}
		lon, err := strconv.ParseFloat(place.Longitude, 64)
		if err != nil {
			return parseError(geocodeOp, fmt.Errorf("parse longitude %q: %w", place.Longitude, err))
		}
		coords = models.Coordinates{Latitude: lat, Longitude: lon}
		trace.SpanFromContext(resp.Request.Context()).SetAttributes(
			attribute.String("geocode.place", place.PlaceName),
			attribute.String("geocode.state", place.State),
		)
		return nil
	}, attribute.String("postal_code", string(code)))
	if err != nil {
		return models.Coordinates{}, err
	}
	return coords, nil
}

// parseError marks an unusable 2xx body as an upstream failure.
func parseError(op string, err error) *models.Error {
	return &models.Error{Kind: models.KindUpstream, Op: op, Message: "parse response", Err: err}
}
