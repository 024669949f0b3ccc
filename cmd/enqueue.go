package main

import (
	"fmt"
	"xssdawn/internal/config"
	"xssdawn/internal/runs"
	"xssdawn/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// enqueueCommand constructs the 'enqueue' subcommand that stores a run and
// queues it for a worker. It prints the run ID on stdout.
func enqueueCommand(cfg *config.Config) *cobra.Command {
	var flags requestFlags

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Queues a pipeline run for the workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			req, err := flags.request(cmd)
			if err != nil {
				return err
			}

			strg, closeStrg, err := getPostgres(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStrg()

			run, err := runs.New(strg, runs.NewOptions(cfg)).Enqueue(ctx, req)
			if err != nil {
				return err
			}

			logger.Info(ctx, "run enqueued", zap.Stringer("runID", run.ID), zap.String("target", run.Target))
			_, err = fmt.Fprintln(cmd.OutOrStdout(), run.ID)

			return err
		},
	}

	flags.register(cmd)

	return cmd
}
