package observability

import (
	"context"
	"errors"
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// FlushTelemetry flushes telemetry buffers before process exit: pending spans
// first, then logs. Prometheus is pull-based and needs nothing.
// Call during graceful shutdown after in-flight requests have drained.
func FlushTelemetry(ctx context.Context, logger *zap.Logger, tp *sdktrace.TracerProvider) error {
	var errs []error
	if err := ShutdownTracerProvider(ctx, tp); err != nil {
		errs = append(errs, err)
	}
	if logger != nil {
		if err := logger.Sync(); err != nil {
			errs = append(errs, fmt.Errorf("flush logs: %w", err))
		}
	}
	return errors.Join(errs...)
}
