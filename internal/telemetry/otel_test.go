package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupNone(t *testing.T) {
	shutdown, err := Setup(context.Background(), "storefront-test", "none", "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	_, span := Tracer("test").Start(context.Background(), "noop")
	span.End()
	assert.False(t, span.SpanContext().IsValid())
}

func TestSetupStdout(t *testing.T) {
	shutdown, err := Setup(context.Background(), "storefront-test", "stdout", "")
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()

	_, span := Tracer("test").Start(context.Background(), "op")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
}

func TestSetupUnknownExporter(t *testing.T) {
	_, err := Setup(context.Background(), "storefront-test", "jaeger", "")
	assert.Error(t, err)
}
