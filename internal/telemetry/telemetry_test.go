package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestSetupSemEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), "", "biblioteca", "test")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSetupRegistraProvider(t *testing.T) {
	anterior := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(anterior) })

	shutdown, err := Setup(context.Background(), "http://127.0.0.1:4318", "biblioteca", "test")
	require.NoError(t, err)
	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, shutdown(ctx))
}
