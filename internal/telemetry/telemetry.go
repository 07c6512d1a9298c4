// Package telemetry installs the global OpenTelemetry tracer provider.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// Shutdown flushes and stops exporting.
type Shutdown func(context.Context) error

// Setup exports spans over OTLP/HTTP to endpoint. With an empty endpoint the
// global no-op provider stays in place and Shutdown does nothing.
func Setup(ctx context.Context, endpoint, service, version string, log *zap.Logger) (Shutdown, error) {
	if endpoint == "" {
		log.Debug("trace export disabled")
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", service),
		attribute.String("service.version", version),
	)
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	log.Info("trace export enabled", zap.String("endpoint", endpoint), zap.String("service", service))

	return provider.Shutdown, nil
}
