// Package pipeline runs the reconnaissance pipeline: collect URLs from the
// configured sources, optionally filter them through gf patterns, then feed
// the candidates to a scanner. Stages run strictly one after another.
package pipeline

import (
	"context"
	"time"
	"xssdawn/pkg/domain"
)

// Stage names used in reports, logs, spans and metrics.
const (
	StageCollect = "collect"
	StageFilter  = "filter"
	StageScan    = "scan"
)

//go:generate mockgen -package mockpipeline -source=interface.go -destination=mock/mockpipeline.go *
type Pipeline interface {
	// Run executes every stage for req and returns the result of the run.
	// Nothing is written to the output; see WriteOutput.
	Run(ctx context.Context, req domain.Request) (*domain.Result, error)
}

// Recorder receives pipeline measurements.
type Recorder interface {
	StageFinished(ctx context.Context, stage string, took time.Duration, urls int)
	ToolFailed(ctx context.Context, tool string)
}

// Source produces URLs for a target.
type Source interface {
	Name() string
	Collect(ctx context.Context, target domain.Target, req domain.Request) ([]string, error)
}
