package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"xssdawn/internal/config"
	"xssdawn/internal/pipeline"
	"xssdawn/internal/runs"
	"xssdawn/pkg/domain"
	"xssdawn/pkg/logger"
	"xssdawn/pkg/metrics"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runCommand constructs the 'run' subcommand that executes the pipeline in
// process and writes its final lines to the output file or stdout.
func runCommand(cfg *config.Config) *cobra.Command {
	var (
		flags  requestFlags
		record bool
		silent bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Collects, filters and scans the URLs of a target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			req, err := flags.request(cmd)
			if err != nil {
				return err
			}
			if !silent {
				printBanner(cmd.ErrOrStderr())
			}

			m, err := metrics.New(metrics.Options{})
			if err != nil {
				return err
			}
			defer func() { _ = m.Shutdown(context.WithoutCancel(ctx)) }()

			tp, flushTraces, err := getTracing(ctx, cfg, "run")
			if err != nil {
				return err
			}
			defer flushTraces()

			p, err := newPipeline(cfg, m, tp)
			if err != nil {
				return err
			}

			result, runErr := p.Run(ctx, req)
			if runErr == nil {
				runErr = pipeline.WriteOutput(req.OutputPath, cmd.OutOrStdout(), result.Lines)
			}

			status := domain.RunStatusCompleted
			if runErr != nil {
				status = domain.RunStatusFailed
			}
			m.RunFinished(ctx, status)

			// a request rejected before any stage ran is not worth a record
			if record && result != nil {
				recordRun(context.WithoutCancel(ctx), cfg, req, result, runErr)
			}

			if cfg.Metrics.Textfile != "" {
				if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
					logger.Warn(ctx, "could not write metrics textfile", zap.Error(err))
				}
			}

			return runErr
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&record, "record", false, "Persist the run to the run store")
	cmd.Flags().BoolVar(&silent, "silent", false, "Do not print the banner")

	return cmd
}

// recordRun stores a finished run. Failing to record is logged and does not
// change the outcome of the run.
func recordRun(ctx context.Context, cfg *config.Config, req domain.Request, result *domain.Result, runErr error) {
	strg, closeStrg, err := getPostgres(ctx, cfg)
	if err != nil {
		logger.Error(ctx, "could not record run", zap.Error(err))

		return
	}
	defer closeStrg()

	run, err := runs.New(strg, runs.NewOptions(cfg)).Record(ctx, req, result, runErr)
	if err != nil {
		logger.Error(ctx, "could not record run", zap.Error(err))

		return
	}

	logger.Info(ctx, "run recorded", zap.Stringer("runID", run.ID), zap.String("status", string(run.Status)))
}
