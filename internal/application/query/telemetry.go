// Package query contains read operations following the CQRS pattern.
// Queries never modify state: each one loads a fresh pool snapshot, runs a
// pure domain computation over it and returns the view.
package query

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/pkg/logger"
)

// TracerName is the instrumentation scope of the read side.
const TracerName = "github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/application/query"

// Metrics records read-side measurements.
// Implementation: internal/infrastructure/metrics.Registry.
type Metrics interface {
	ObserveQuery(name string, d time.Duration, err error)
	ObserveCache(hit bool)
}

// Telemetry bundles what every handler needs to report on itself.
// The zero value is usable: a nil tracer falls back to the global
// provider, nil metrics are skipped and a nil logger discards.
type Telemetry struct {
	Tracer  trace.Tracer
	Metrics Metrics
	Logger  *logger.Logger
}

func (t Telemetry) tracer() trace.Tracer {
	if t.Tracer != nil {
		return t.Tracer
	}
	return otel.Tracer(TracerName)
}

func (t Telemetry) logger() *logger.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return logger.Discard()
}

// observe runs fn inside a span, records its duration and logs failures.
func observe[T any](ctx context.Context, tel Telemetry, name string, attrs []attribute.KeyValue, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := tel.tracer().Start(ctx, name, trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	res, err := fn(ctx)
	elapsed := time.Since(start)

	if tel.Metrics != nil {
		tel.Metrics.ObserveQuery(name, elapsed, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		tel.logger().ErrorContext(ctx, "query failed",
			logger.Operation(name),
			logger.Latency(elapsed),
			logger.Err(err),
		)
	}
	return res, err
}
