package client

import (
	"context"
	"errors"

	"github.com/kjstillabower/zip-weather-service/internal/circuitbreaker"
	"github.com/kjstillabower/zip-weather-service/internal/models"
)

// ErrorCategory is a stable label for error classification in metrics.
type ErrorCategory string

// Error category constants used as the upstreamErrorsTotal category label.
const (
	ErrorCategoryTimeout     ErrorCategory = "timeout"
	ErrorCategoryNetwork     ErrorCategory = "network"
	ErrorCategoryCircuitOpen ErrorCategory = "circuit_open"
	ErrorCategoryNotFound    ErrorCategory = "not_found"
	ErrorCategoryRateLimited ErrorCategory = "rate_limited"
	ErrorCategoryUpstream4xx ErrorCategory = "upstream_4xx"
	ErrorCategoryUpstream5xx ErrorCategory = "upstream_5xx"
	ErrorCategoryParsing     ErrorCategory = "parsing"
	ErrorCategoryValidation  ErrorCategory = "validation"
	ErrorCategoryUnknown     ErrorCategory = "unknown"
)

// CategorizeError maps an error to a stable ErrorCategory for metrics.
// Classification uses the error kind and wrapped sentinels, never message text.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorCategoryTimeout
	}
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return ErrorCategoryCircuitOpen
	}

	var e *models.Error
	if !errors.As(err, &e) {
		return ErrorCategoryUnknown
	}
	switch e.Kind {
	case models.KindValidation:
		return ErrorCategoryValidation
	case models.KindNotFound:
		return ErrorCategoryNotFound
	case models.KindTransport:
		if isTimeout(e.Err) {
			return ErrorCategoryTimeout
		}
		return ErrorCategoryNetwork
	case models.KindUpstream:
		switch {
		case e.Status == 0:
			return ErrorCategoryParsing
		case e.Status == 429:
			return ErrorCategoryRateLimited
		case e.Status >= 500:
			return ErrorCategoryUpstream5xx
		default:
			return ErrorCategoryUpstream4xx
		}
	}
	return ErrorCategoryUnknown
}

// isTimeout reports net-level timeouts (http.Client.Timeout, dial timeouts).
func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
