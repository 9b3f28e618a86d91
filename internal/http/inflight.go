package http

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/kjstillabower/zip-weather-service/internal/observability"
)

// InFlightTracker counts requests being served so shutdown can drain them.
// It also drives the httpRequestsInFlight gauge. The zero value is ready to use.
type InFlightTracker struct {
	count atomic.Int64
}

// Begin marks a request as started and returns the func that marks it done.
func (t *InFlightTracker) Begin() (done func()) {
	t.count.Add(1)
	observability.HTTPRequestsInFlight.Inc()
	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			t.count.Add(-1)
			observability.HTTPRequestsInFlight.Dec()
		}
	}
}

// Count returns the number of requests currently in flight.
func (t *InFlightTracker) Count() int64 {
	return t.count.Load()
}

// Drain blocks until no request is in flight or ctx is done, polling every interval.
func (t *InFlightTracker) Drain(ctx context.Context, interval time.Duration) error {
	if t.Count() == 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if t.Count() == 0 {
				return nil
			}
		}
	}
}
