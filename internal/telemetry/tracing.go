// Package telemetry installs the process-wide OpenTelemetry tracer provider.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/s1natex/tasktracker-api/internal/config"
)

// Setup installs a tracer provider for the configured exporter and the W3C
// trace-context propagator. With TracingNone the global no-op provider stays.
// The returned func flushes buffered spans and is always safe to call.
func Setup(ctx context.Context, exporter config.TracingExporter, serviceName string) (func(context.Context) error, error) {
	return setup(ctx, exporter, serviceName, os.Stdout)
}

func setup(ctx context.Context, exporter config.TracingExporter, serviceName string, out io.Writer) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	var (
		exp sdktrace.SpanExporter
		err error
	)
	switch exporter {
	case config.TracingNone, "":
		return func(context.Context) error { return nil }, nil
	case config.TracingStdout:
		exp, err = stdouttrace.New(stdouttrace.WithWriter(out))
	case config.TracingOTLP:
		// endpoint and headers come from the standard OTEL_EXPORTER_OTLP_* variables
		exp, err = otlptracehttp.New(ctx)
	default:
		return nil, fmt.Errorf("unknown tracing exporter %q", exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s exporter: %w", exporter, err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(semconv.ServiceName(serviceName))),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
