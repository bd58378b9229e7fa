package obs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestDisabledTracerIsNoop(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), Options{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
}

func TestEnabledTracerInstallsProvider(t *testing.T) {
	// The gRPC client connects lazily, so no collector is needed here.
	shutdown, err := InitTracer(context.Background(), Options{
		Enabled:     true,
		Endpoint:    "127.0.0.1:4317",
		ServiceName: "golf-ops-test",
	})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "probe")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}
