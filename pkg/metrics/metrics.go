// Package metrics records pipeline and run measurements with OpenTelemetry
// instruments and exposes them in the Prometheus format, either over HTTP or
// as a node-exporter textfile.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"
	"xssdawn/pkg/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// DefaultBuckets provides a common set of histogram buckets in seconds that can
// be reused across the application for latency metrics. Pipeline stages wrap
// external tools, so the upper buckets reach an hour.
var DefaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300, 900, 1800, 3600} //nolint: gochecknoglobals,lll

const meterName = "xssdawn"

// Options configure Metrics.
type Options struct {
	// RuntimeCollectors adds the Go runtime and process collectors. Useful for
	// long running processes only.
	RuntimeCollectors bool
}

// Metrics owns a private Prometheus registry fed by an OpenTelemetry meter
// provider.
type Metrics struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider

	stageDuration metric.Float64Histogram
	stageURLs     metric.Int64Counter
	runs          metric.Int64Counter
	toolFailures  metric.Int64Counter
}

// New creates the registry, the exporter and every instrument.
func New(options Options) (*Metrics, error) {
	registry := prometheus.NewRegistry()
	if options.RuntimeCollectors {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	exp, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("could not create otel exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))
	meter := provider.Meter(meterName)

	m := &Metrics{registry: registry, provider: provider}

	if m.stageDuration, err = meter.Float64Histogram("xssdawn.stage.duration",
		metric.WithDescription("Duration of pipeline stages"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(DefaultBuckets...)); err != nil {
		return nil, fmt.Errorf("could not create stage duration histogram: %w", err)
	}
	if m.stageURLs, err = meter.Int64Counter("xssdawn.stage.urls",
		metric.WithDescription("Lines produced by pipeline stages")); err != nil {
		return nil, fmt.Errorf("could not create stage urls counter: %w", err)
	}
	if m.runs, err = meter.Int64Counter("xssdawn.runs",
		metric.WithDescription("Finished runs by status")); err != nil {
		return nil, fmt.Errorf("could not create runs counter: %w", err)
	}
	if m.toolFailures, err = meter.Int64Counter("xssdawn.tool.failures",
		metric.WithDescription("Failed external tool invocations")); err != nil {
		return nil, fmt.Errorf("could not create tool failures counter: %w", err)
	}

	return m, nil
}

// StageFinished records the duration and output size of a pipeline stage.
func (m *Metrics) StageFinished(ctx context.Context, stage string, took time.Duration, urls int) {
	attrs := metric.WithAttributes(attribute.String("stage", stage))
	m.stageDuration.Record(ctx, took.Seconds(), attrs)
	m.stageURLs.Add(ctx, int64(urls), attrs)
}

// ToolFailed counts a failed tool invocation.
func (m *Metrics) ToolFailed(ctx context.Context, tool string) {
	m.toolFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", tool)))
}

// RunFinished counts a run that reached a final status.
func (m *Metrics) RunFinished(ctx context.Context, status domain.RunStatus) {
	m.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(status))))
}

// Gatherer exposes the underlying registry.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the current values to path for the node-exporter
// textfile collector. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("could not write metrics textfile: %w", err)
	}

	return nil
}

// Shutdown flushes and stops the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if err := m.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("could not shutdown meter provider: %w", err)
	}

	return nil
}
