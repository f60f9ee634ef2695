package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInit_DiscardsWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	ctx := context.Background()

	shutdown, err := Init(ctx, "netscope-test", "dev", "")
	require.NoError(t, err)

	_, span := otel.Tracer("netscope/test").Start(ctx, "probe")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
	require.NoError(t, shutdown(ctx))
}

func TestNewExporter_FallbackWritesSpans(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	ctx := context.Background()
	var buf bytes.Buffer

	exp, err := newExporter(ctx, "", &buf)
	require.NoError(t, err)
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))

	_, span := tp.Tracer("netscope/test").Start(ctx, "View.Expand")
	span.End()
	require.NoError(t, tp.Shutdown(ctx))
	assert.Contains(t, buf.String(), "View.Expand")
}

func TestNewExporter_OTLPEndpoint(t *testing.T) {
	exp, err := newExporter(context.Background(), "http://127.0.0.1:4318", nil)
	require.NoError(t, err)
	assert.NotNil(t, exp)
	require.NoError(t, exp.Shutdown(context.Background()))
}
