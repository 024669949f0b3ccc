// Package tracing sets up OpenTelemetry trace export over OTLP/gRPC.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const defaultServiceName = "xssdawn"

// Options configure the exporter.
type Options struct {
	// Endpoint is the collector address (e.g. "localhost:4317"). Tracing is
	// disabled when empty.
	Endpoint string
	// Insecure disables TLS towards the collector.
	Insecure bool
	// Headers are sent with every export request.
	Headers map[string]string
	// SampleRatio is the fraction of runs traced, between 0 and 1.
	SampleRatio float64
	// ServiceName is reported as service.name.
	ServiceName string
	// Component is reported as service.component (run, worker, ...).
	Component string
}

// Provider is a TracerProvider that must be shut down to flush pending spans.
type Provider interface {
	trace.TracerProvider
	Shutdown(ctx context.Context) error
}

type nopProvider struct {
	trace.TracerProvider
}

func (nopProvider) Shutdown(context.Context) error { return nil }

// Setup returns the provider configured by options. Without an endpoint it
// returns the global provider and a no-op Shutdown. The exporter connects
// lazily, so an unreachable collector never blocks a run.
func Setup(ctx context.Context, options Options) (Provider, error) {
	if options.Endpoint == "" {
		return nopProvider{TracerProvider: otel.GetTracerProvider()}, nil
	}
	if options.ServiceName == "" {
		options.ServiceName = defaultServiceName
	}

	exporterOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(options.Endpoint),
	}
	if options.Insecure {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
	}
	if len(options.Headers) > 0 {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithHeaders(options.Headers))
	}

	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("could not create otlp trace exporter: %w", err)
	}

	attrs := []attribute.KeyValue{attribute.String("service.name", options.ServiceName)}
	if options.Component != "" {
		attrs = append(attrs, attribute.String("service.component", options.Component))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attrs...)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(options.SampleRatio))),
	)
	otel.SetTracerProvider(tp)

	return tp, nil
}
