package telemetry

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// Logger is the subset of the application logger used during bootstrap.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
}

// InitTracer installs a global tracer provider exporting spans to w (stderr
// when nil). The returned function flushes and shuts the provider down.
func InitTracer(serviceName string, w io.Writer, log Logger) (func(context.Context) error, error) {
	if w == nil {
		w = os.Stderr
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"",
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	if log != nil {
		log.InfoObj("opentelemetry initialized", "service", serviceName)
	}
	return tp.Shutdown, nil
}
