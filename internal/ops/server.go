// Package ops configures the worker's operational HTTP server: metrics,
// health and profiling endpoints.
package ops

import (
	"context"
	"net/http"
	"time"
	"xssdawn/internal/config"
	"xssdawn/pkg/controller"
)

// HealthPath is where the readiness check is served.
const HealthPath = "/healthz"

// Options holds configuration for the ops server.
type Options struct {
	// Addr is the TCP address the server listens on, e.g. ":9090".
	Addr string
	// ReadHeaderTimeout is the amount of time allowed to read request headers.
	ReadHeaderTimeout time.Duration
	// MetricsPath is the HTTP path at which Prometheus metrics are served.
	MetricsPath string
}

// NewOptions constructs an Options value from the provided application configuration.
func NewOptions(cfg *config.Config) Options {
	return Options{
		Addr:              cfg.Metrics.Addr,
		ReadHeaderTimeout: cfg.Metrics.ReadHeaderTimeout,
		MetricsPath:       cfg.Metrics.Path,
	}
}

// Deps are the handlers and checks exposed by the server.
type Deps struct {
	// Metrics serves the Prometheus exposition format.
	Metrics http.Handler
	// Ready reports whether the worker's dependencies are reachable.
	Ready func(ctx context.Context) error
}

// NewServer wires up and returns a configured *http.Server exposing:
// - metrics on MetricsPath
// - a readiness check on HealthPath
// - pprof endpoints under /debug/pprof/
// Every request goes through the access log middleware.
func NewServer(deps Deps, opts Options) *http.Server {
	mux := http.NewServeMux()

	mux.Handle(opts.MetricsPath, deps.Metrics)
	mux.Handle(HealthPath, controller.Health(deps.Ready, opts.ReadHeaderTimeout))
	mux.Handle(controller.PprofPrefix, controller.PprofMux())

	return &http.Server{
		Addr:              opts.Addr,
		Handler:           controller.WithLogger(mux, opts.MetricsPath, HealthPath),
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
	}
}
