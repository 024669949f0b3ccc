package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"
	"xssdawn/internal/config"
	"xssdawn/pkg/crawler"
	"xssdawn/pkg/domain"
	"xssdawn/pkg/logger"
	"xssdawn/pkg/tools"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "xssdawn/internal/pipeline"

// Options configure the stages of a pipeline.
type Options struct {
	// Sources are the URL source names run by the collector, in order.
	Sources []string
	// Crawler is the base configuration of the built-in crawler source.
	Crawler crawler.Options
	// Patterns are the gf patterns applied when PatternsDir is empty.
	Patterns []string
	// PatternsDir, when set, makes every *.json file in it a gf pattern.
	PatternsDir string
	// DalfoxArgs are appended to every dalfox invocation.
	DalfoxArgs []string
	// ArjunArgs are appended to every arjun invocation.
	ArjunArgs []string
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		Sources: cfg.Collect.Sources,
		Crawler: crawler.Options{
			MaxPages:          cfg.Crawler.MaxPages,
			RequestsPerSecond: cfg.Crawler.RequestsPerSecond,
			RespectRobots:     cfg.Crawler.RespectRobots,
			UserAgent:         cfg.Crawler.UserAgent,
			Timeout:           cfg.Crawler.Timeout,
		},
		Patterns:    cfg.Filter.Patterns,
		PatternsDir: cfg.Filter.PatternsDir,
		DalfoxArgs:  cfg.Scanner.DalfoxArgs,
		ArjunArgs:   cfg.Scanner.ArjunArgs,
	}
}

// Deps are the collaborators of a pipeline.
type Deps struct {
	// Runner executes the external tools.
	Runner tools.Runner
	// Recorder receives stage measurements. Optional.
	Recorder Recorder
	// TracerProvider creates the stage spans. Defaults to the global provider.
	TracerProvider trace.TracerProvider
	// Sources overrides the sources built from Options.Sources. Optional.
	Sources []Source
}

type pipeline struct {
	options  Options
	runner   tools.Runner
	recorder Recorder
	tracer   trace.Tracer
	sources  []Source
}

// New creates a Pipeline. Unknown source names are reported as bad requests.
func New(deps Deps, options Options) (Pipeline, error) {
	p := &pipeline{
		options:  options,
		runner:   deps.Runner,
		recorder: deps.Recorder,
		sources:  deps.Sources,
	}
	if p.recorder == nil {
		p.recorder = nopRecorder{}
	}

	tp := deps.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	p.tracer = tp.Tracer(tracerName)

	if p.sources == nil {
		for _, name := range options.Sources {
			src, err := NewSource(name, deps.Runner, options.Crawler)
			if err != nil {
				return nil, err
			}
			p.sources = append(p.sources, src)
		}
	}

	return p, nil
}

// Run executes collect, filter and scan one after another. A failing tool
// stops the run unless req.KeepGoing is set, in which case the failure is
// logged and the tool's output is treated as empty. On failure the stages
// completed so far are returned along with the error.
func (p *pipeline) Run(ctx context.Context, req domain.Request) (*domain.Result, error) {
	target, err := ValidateRequest(req)
	if err != nil {
		return nil, err
	}
	if req.Scanner == "" {
		req.Scanner = domain.ScannerXSS
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("target", target.Domain),
		attribute.String("scanner", string(req.Scanner)),
		attribute.Bool("filter", req.Filter),
	))
	defer span.End()
	ctx = logger.WithFields(ctx, zap.String("target", target.Domain))

	result := &domain.Result{}

	// collect
	urls, report, err := p.stage(ctx, StageCollect, len(p.sources), func(ctx context.Context) ([]string, error) {
		return p.collect(ctx, target, req)
	})
	result.Stages = append(result.Stages, report)
	if err != nil {
		return p.fail(span, result, err)
	}
	result.URLs = urls

	// filter
	candidates := urls
	switch {
	case !req.Filter:
		result.Stages = append(result.Stages, skipped(StageFilter, len(urls)))
	case len(urls) == 0:
		logger.Warn(ctx, "no URLs collected, skipping filter")
		result.Stages = append(result.Stages, skipped(StageFilter, 0))
	default:
		candidates, report, err = p.stage(ctx, StageFilter, len(urls), func(ctx context.Context) ([]string, error) {
			return p.filter(ctx, urls, req)
		})
		result.Stages = append(result.Stages, report)
		if err != nil {
			return p.fail(span, result, err)
		}
		if len(candidates) == 0 {
			logger.Warn(ctx, "gf matched nothing, continuing with every collected URL")
			candidates = urls
		}
	}
	result.Candidates = candidates

	// scan
	switch {
	case req.Scanner == domain.ScannerNone:
		result.Lines = candidates
		result.Stages = append(result.Stages, skipped(StageScan, len(candidates)))
	case len(candidates) == 0:
		logger.Warn(ctx, "no candidates left, skipping scan")
		result.Lines = []string{}
		result.Stages = append(result.Stages, skipped(StageScan, 0))
	default:
		lines, report, err := p.stage(ctx, StageScan, len(candidates), func(ctx context.Context) ([]string, error) {
			return p.scan(ctx, candidates, req)
		})
		result.Stages = append(result.Stages, report)
		if err != nil {
			return p.fail(span, result, err)
		}
		result.Lines = lines
	}

	span.SetAttributes(attribute.Int("lines", len(result.Lines)))

	return result, nil
}

// stage runs fn inside its own span and reports its duration and output size.
func (p *pipeline) stage(ctx context.Context,
	name string,
	input int,
	fn func(ctx context.Context) ([]string, error)) ([]string, domain.StageReport, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline."+name, trace.WithAttributes(attribute.Int("input", input)))
	defer span.End()
	ctx = logger.WithFields(ctx, zap.String("stage", name))

	logger.Info(ctx, "stage started", zap.Int("input", input))
	start := time.Now()
	out, err := fn(ctx)
	report := domain.StageReport{
		Stage:    name,
		Input:    input,
		Output:   len(out),
		Duration: time.Since(start),
	}
	p.recorder.StageFinished(ctx, name, report.Duration, len(out))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, report, fmt.Errorf("%s stage failed: %w", name, err)
	}

	span.SetAttributes(attribute.Int("output", len(out)))
	logger.Info(ctx, "stage finished",
		zap.Int("output", len(out)),
		zap.Duration("took", report.Duration))

	return out, report, nil
}

// tolerate decides what a tool failure means for the run. It returns nil when
// the run should continue without the tool's output.
func (p *pipeline) tolerate(ctx context.Context, req domain.Request, tool string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%s interrupted: %w", tool, errors.Join(ctx.Err(), err))
	}

	p.recorder.ToolFailed(ctx, tool)
	if !req.KeepGoing {
		return fmt.Errorf("%s failed: %w", tool, err)
	}

	logger.Warn(ctx, "tool failed, continuing without its output",
		zap.String("tool", tool),
		zap.Int("exitCode", tools.ExitCode(err)),
		zap.Error(err))

	return nil
}

func (p *pipeline) fail(span trace.Span, result *domain.Result, err error) (*domain.Result, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	return result, err
}

func skipped(stage string, n int) domain.StageReport {
	return domain.StageReport{Stage: stage, Input: n, Output: n, Skipped: true}
}

type nopRecorder struct{}

func (nopRecorder) StageFinished(context.Context, string, time.Duration, int) {}
func (nopRecorder) ToolFailed(context.Context, string)                        {}
