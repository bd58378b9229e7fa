// Package obs sets up OpenTelemetry tracing.  Spans are exported over
// OTLP/gRPC to a collector; when tracing is disabled the global no-op
// provider stays in place.
package obs

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Options configures the tracer provider.
type Options struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	Version     string
	Env         string
}

// InitTracer installs a batching OTLP tracer provider and the W3C trace
// context propagator.  The returned func flushes and stops the provider.
func InitTracer(ctx context.Context, o Options) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	if !o.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	conn, err := grpc.NewClient(o.Endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("otlp dial: %w", err)
	}
	exp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(o.ServiceName),
		semconv.ServiceVersionKey.String(orDefault(o.Version, "0.1.0")),
		semconv.DeploymentEnvironmentKey.String(orDefault(o.Env, "dev")),
	))
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		err := tp.Shutdown(ctx)
		_ = conn.Close()
		return err
	}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
