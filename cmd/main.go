// Package main provides the CLI entrypoint of xssdawn.
// It wires the subcommands (run, enqueue, worker, runs, migrate), loads
// configuration and initializes logging.
package main

import (
	"context"
	"fmt"
	"os"
	"xssdawn/internal/config"
	"xssdawn/internal/pipeline"
	"xssdawn/pkg/logger"
	"xssdawn/pkg/storage/postgres"
	"xssdawn/pkg/tools"
	"xssdawn/pkg/tracing"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// getPostgres creates a PostgreSQL client using configuration values and returns it
// along with a cleanup function to close the connection pool.
func getPostgres(ctx context.Context, cfg *config.Config) (*postgres.PgSQL, func(), error) {
	pgsql, err := postgres.New(ctx, postgres.Options{
		Username:           cfg.Database.Username,
		Password:           cfg.Database.Password,
		Host:               cfg.Database.Host,
		Port:               cfg.Database.Port,
		Database:           cfg.Database.DatabaseName,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime:    cfg.Database.ConnMaxIdleTime,
		MaxOpenConnections: cfg.Database.MaxOpenConnections,
		MaxIdleConnections: cfg.Database.MaxIdleConnections,
		SslMode:            cfg.Database.SslMode,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not create postgres storage: %w", err)
	}

	return pgsql, func() {
		logger.Debug(ctx, "closing postgres client...")
		if err = pgsql.Close(); err != nil {
			logger.Warn(ctx, "could not close postgres connection", zap.Error(err))
		}
	}, nil
}

// getTracing sets up trace export for the given component and returns a
// cleanup function flushing pending spans.
func getTracing(ctx context.Context, cfg *config.Config, component string) (tracing.Provider, func(), error) {
	tp, err := tracing.Setup(ctx, tracing.Options{
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		Headers:     cfg.Tracing.Headers,
		SampleRatio: cfg.Tracing.SampleRatio,
		Component:   component,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not setup tracing: %w", err)
	}

	return tp, func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.GracefulShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn(ctx, "could not flush traces", zap.Error(err))
		}
	}, nil
}

// newPipeline builds the pipeline with the external tools configured in cfg.
func newPipeline(cfg *config.Config, recorder pipeline.Recorder, tp trace.TracerProvider) (pipeline.Pipeline, error) {
	runner := tools.NewExecRunner(tools.Options{
		Paths:   cfg.Tools.Paths,
		Timeout: cfg.Tools.Timeout,
	})

	p, err := pipeline.New(pipeline.Deps{
		Runner:         runner,
		Recorder:       recorder,
		TracerProvider: tp,
	}, pipeline.NewOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("could not create pipeline: %w", err)
	}

	return p, nil
}

// main sets up the root Cobra command, loads configuration and logging before
// any subcommand runs, and exits with the code derived from the returned error.
func main() {
	var (
		configPath string
		cfg        = &config.Config{}
	)

	rootCmd := &cobra.Command{
		Use:           "xssdawn",
		Short:         "Chains URL harvesters, gf and XSS/parameter scanners against a target",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			*cfg = *loaded

			return logger.Setup(cfg.Environment, cfg.LogLevel) //nolint: wrapcheck
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yml", "Config File Path")
	rootCmd.SetFlagErrorFunc(flagError)

	ctx := context.Background()

	defer func() {
		if p := recover(); p != nil {
			logger.Error(ctx, "captured panic, exiting...", zap.Any("panic", p))
			logger.Sync()

			panic(p)
		}
	}()

	rootCmd.AddCommand(
		runCommand(cfg),
		enqueueCommand(cfg),
		workerCommand(cfg),
		runsCommand(cfg),
		migrateCommand(cfg),
	)

	err := rootCmd.ExecuteContext(ctx)
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(tools.ExitCode(err)) //nolint: gocritic
	}
}
