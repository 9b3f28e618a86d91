package client

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kjstillabower/zip-weather-service/internal/circuitbreaker"
	"github.com/kjstillabower/zip-weather-service/internal/models"
)

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o timeout" }
func (timeoutErr) Timeout() bool { return true }

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, ""},
		{"deadline", context.DeadlineExceeded, ErrorCategoryTimeout},
		{"wrapped canceled", fmt.Errorf("x: %w", context.Canceled), ErrorCategoryTimeout},
		{"transport timeout", &models.Error{Kind: models.KindTransport, Err: timeoutErr{}}, ErrorCategoryTimeout},
		{"transport refused", &models.Error{Kind: models.KindTransport, Err: errors.New("connection refused")}, ErrorCategoryNetwork},
		{"breaker open", &models.Error{Kind: models.KindTransport, Err: circuitbreaker.ErrOpen}, ErrorCategoryCircuitOpen},
		{"not found", models.NotFoundError("geocode", "00000"), ErrorCategoryNotFound},
		{"validation", models.ValidationError("bad"), ErrorCategoryValidation},
		{"upstream 500", upstreamStatusError("weather", "weather", 500), ErrorCategoryUpstream5xx},
		{"upstream 400", upstreamStatusError("weather", "weather", 400), ErrorCategoryUpstream4xx},
		{"upstream 429", upstreamStatusError("weather", "weather", 429), ErrorCategoryRateLimited},
		{"parse", parseError("weather", errors.New("eof")), ErrorCategoryParsing},
		{"unknown", errors.New("something"), ErrorCategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CategorizeError(tt.err); got != tt.want {
				t.Errorf("CategorizeError(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
