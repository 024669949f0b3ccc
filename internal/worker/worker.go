// Package worker executes queued pipeline runs with river.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"xssdawn/internal/config"
	"xssdawn/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"go.uber.org/zap/exp/zapslog"
)

// Options configure the river client started by Start.
type Options struct {
	// MaxWorkers is the number of runs executed concurrently.
	MaxWorkers int
	// JobTimeout bounds a single run attempt; zero or negative disables it.
	JobTimeout time.Duration
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		MaxWorkers: cfg.Queue.MaxWorkers,
		JobTimeout: cfg.Queue.JobTimeout,
	}
}

// Start registers the run worker and starts a river client on the default
// queue. The caller stops it with river.Client.Stop.
func Start(ctx context.Context, dbPool *pgxpool.Pool, runWorker *RunWorker, options Options) (*river.Client[pgx.Tx], error) {
	workers := river.NewWorkers()
	river.AddWorker(workers, runWorker)

	maxWorkers := options.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	jobTimeout := options.JobTimeout
	if jobTimeout <= 0 {
		jobTimeout = -1
	}

	riverClient, err := river.NewClient(riverpgxv5.New(dbPool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: maxWorkers},
		},
		JobTimeout: jobTimeout,
		Workers:    workers,
		Logger:     slog.New(zapslog.NewHandler(logger.Get(ctx).Core())),
	})
	if err != nil {
		return nil, fmt.Errorf("could not create river queue client: %w", err)
	}

	if err := riverClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("could not start river queue client: %w", err)
	}

	return riverClient, nil
}
