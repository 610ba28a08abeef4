package tracing

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderWithWriter(t *testing.T) {
	var buf bytes.Buffer
	tp, err := NewProviderWithWriter(Config{Enabled: true}, "test", &buf)
	require.NoError(t, err)

	_, span := tp.Tracer(TracerName).Start(context.Background(), "relay.factory")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), `"Name":"relay.factory"`)
	assert.Contains(t, buf.String(), `"Value":"relaygen"`)
}

func TestNewProvider_Disabled(t *testing.T) {
	tp, shutdown, err := NewProvider(Config{}, "test")
	require.NoError(t, err)

	_, span := tp.Tracer(TracerName).Start(context.Background(), "ignored")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, shutdown(context.Background()))
}

func TestNewProvider_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spans.json")
	tp, shutdown, err := NewProvider(Config{Enabled: true, File: path}, "test")
	require.NoError(t, err)

	_, span := tp.Tracer(TracerName).Start(context.Background(), "relay.run")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "relay.run")
}
