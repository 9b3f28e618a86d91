package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/kjstillabower/zip-weather-service/internal/circuitbreaker"
	"github.com/kjstillabower/zip-weather-service/internal/models"
	"github.com/kjstillabower/zip-weather-service/internal/observability"
)

const tracerName = "github.com/kjstillabower/zip-weather-service/internal/client"

// ErrInvalidBaseURL is returned by constructors when the provider URL is unusable.
var ErrInvalidBaseURL = errors.New("invalid base URL")

// upstream holds what both provider clients share: one http.Client per provider
// (connection reuse), metric labels, and an optional circuit breaker.
type upstream struct {
	provider string
	op       string
	baseURL  *url.URL
	client   *http.Client
	breaker  *circuitbreaker.CircuitBreaker
}

func newUpstream(provider, op, baseURL string, timeout time.Duration) (*upstream, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}
	return &upstream{
		provider: provider,
		op:       op,
		baseURL:  u,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// endpoint joins path onto the base URL and attaches query.
func (u *upstream) endpoint(path string, query url.Values) string {
	e := *u.baseURL
	e.Path = strings.TrimRight(e.Path, "/") + path
	if query != nil {
		e.RawQuery = query.Encode()
	}
	return e.String()
}

// get issues one GET and hands the response to handle. Any error returned is a
// *models.Error. When a breaker is set, NotFound answers do not count as failures.
func (u *upstream) get(ctx context.Context, spanName, reqURL string, handle func(*http.Response) error, attrs ...attribute.KeyValue) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(attrs, attribute.String("upstream.provider", u.provider))...),
	)
	defer span.End()

	err := u.call(ctx, reqURL, handle)
	if err != nil {
		observability.UpstreamErrorsTotal.WithLabelValues(u.provider, string(CategorizeError(err))).Inc()
		span.RecordError(err)
		if !models.IsNotFound(err) {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	return err
}

// call runs do through the breaker when one is set. NotFound answers and calls
// abandoned by the caller (cancelled or past its deadline) do not count as
// breaker failures. A call the breaker refused becomes KindTransport.
func (u *upstream) call(ctx context.Context, reqURL string, handle func(*http.Response) error) error {
	if u.breaker == nil {
		return u.do(ctx, reqURL, handle)
	}
	var callErr error
	ran := false
	brErr := u.breaker.Call(ctx, func() error {
		ran = true
		callErr = u.do(ctx, reqURL, handle)
		if models.IsNotFound(callErr) || ctx.Err() != nil {
			return nil
		}
		return callErr
	})
	if ran {
		return callErr
	}
	return &models.Error{Kind: models.KindTransport, Op: u.op, Message: "request not sent", Err: brErr}
}

// do performs the HTTP round trip and records call metrics.
func (u *upstream) do(ctx context.Context, reqURL string, handle func(*http.Response) error) error {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &models.Error{Kind: models.KindTransport, Op: u.op, Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if corrID := observability.CorrelationIDFromContext(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := u.client.Do(req)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues(u.provider, "error").Inc()
		observability.UpstreamDuration.WithLabelValues(u.provider, "error").Observe(time.Since(start).Seconds())
		return &models.Error{Kind: models.KindTransport, Op: u.op, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.UpstreamCallsTotal.WithLabelValues(u.provider, status).Inc()
	observability.UpstreamDuration.WithLabelValues(u.provider, status).Observe(time.Since(start).Seconds())
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	return handle(resp)
}

// upstreamStatusError builds the KindUpstream error for a non-success response.
func upstreamStatusError(op, what string, status int) *models.Error {
	return &models.Error{
		Kind:    models.KindUpstream,
		Op:      op,
		Status:  status,
		Message: fmt.Sprintf("%s request failed with status %d", what, status),
	}
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func statusLabel(statusCode int) string {
	if isSuccess(statusCode) {
		return "success"
	}
	if statusCode == 404 {
		return "not_found"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
