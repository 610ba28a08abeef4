// Package tracing sets up OpenTelemetry spans for relaygen runs.
package tracing

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerName is the instrumentation scope of every relaygen span.
const TracerName = "relaygen"

type Config struct {
	Enabled bool `yaml:"enabled"`
	// File receives the spans as JSON. Empty means stdout.
	File   string `yaml:"file"`
	Pretty bool   `yaml:"pretty"`
}

// ShutdownFunc flushes and releases the provider.
type ShutdownFunc func(context.Context) error

// NewProvider builds a provider exporting through stdouttrace to stderr or cfg.File, or a no-op one when disabled.
// The provider is also installed globally.
func NewProvider(cfg Config, version string) (trace.TracerProvider, ShutdownFunc, error) {
	if !cfg.Enabled {
		return noop.NewTracerProvider(), func(context.Context) error { return nil }, nil
	}

	var w io.Writer = os.Stderr
	var closer io.Closer
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open trace file: %w", err)
		}
		w, closer = f, f
	}

	tp, err := NewProviderWithWriter(cfg, version, w)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, nil, err
	}
	otel.SetTracerProvider(tp)

	return tp, func(ctx context.Context) error {
		err := tp.Shutdown(ctx)
		if closer != nil {
			if cerr := closer.Close(); err == nil {
				err = cerr
			}
		}
		return err
	}, nil
}

// NewProviderWithWriter exports spans synchronously to w.
func NewProviderWithWriter(cfg Config, version string, w io.Writer) (*sdktrace.TracerProvider, error) {
	opts := []stdouttrace.Option{stdouttrace.WithWriter(w)}
	if cfg.Pretty {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", TracerName),
		attribute.String("service.version", version),
	)
	return sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
	), nil
}
