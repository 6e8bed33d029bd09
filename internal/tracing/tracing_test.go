package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(context.Background(), DefaultConfig(), nil)
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.NotNil(t, p.TracerProvider())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_Stdout(t *testing.T) {
	var buf bytes.Buffer

	cfg := DefaultConfig()
	cfg.Enabled = true

	p, err := NewProvider(context.Background(), cfg, &buf)
	require.NoError(t, err)
	assert.True(t, p.Enabled())

	_, span := p.TracerProvider().Tracer("test").Start(context.Background(), "component.factory")
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "component.factory")
	assert.Contains(t, buf.String(), "gizmo")
}

func TestNewProvider_None(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Exporter = "none"

	p, err := NewProvider(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.True(t, p.Enabled())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_OTLP(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Exporter = "otlp"
	cfg.OTLPEndpoint = "127.0.0.1:4317"

	// The gRPC exporter connects lazily, so construction succeeds without a collector.
	p, err := NewProvider(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.True(t, p.Enabled())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = p.Shutdown(ctx)
}

func TestNewProvider_UnsupportedExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Exporter = "carrier-pigeon"

	_, err := NewProvider(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "unsupported exporter type")
}
