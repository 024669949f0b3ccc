package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"xssdawn/internal/config"
	"xssdawn/internal/ops"
	"xssdawn/internal/worker"
	"xssdawn/pkg/logger"
	"xssdawn/pkg/metrics"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// setupOpsServer starts the metrics, health and pprof server in the background
// and returns a function that shuts it down.
func setupOpsServer(ctx context.Context, cfg *config.Config, deps ops.Deps) func(ctx context.Context) {
	server := ops.NewServer(deps, ops.NewOptions(cfg))

	go func() {
		logger.Info(ctx, "starting ops server...", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error(ctx, "could not start ops server", zap.Error(err))
			}
		}
	}()

	return func(ctx context.Context) {
		logger.Info(ctx, "stopping ops server...")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(ctx, "could not stop ops server", zap.Error(err))
		}
	}
}

// workerCommand constructs the 'worker' subcommand that executes queued runs
// until interrupted.
func workerCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Starts background workers executing queued runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			strg, closeStrg, err := getPostgres(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStrg()

			m, err := metrics.New(metrics.Options{RuntimeCollectors: true})
			if err != nil {
				return err
			}

			tp, flushTraces, err := getTracing(ctx, cfg, "worker")
			if err != nil {
				return err
			}
			defer flushTraces()

			p, err := newPipeline(cfg, m, tp)
			if err != nil {
				return err
			}

			riverClient, err := worker.Start(ctx, strg.Pool, worker.NewRunWorker(strg, p, m), worker.NewOptions(cfg))
			if err != nil {
				return err
			}
			logger.Info(ctx, "worker started", zap.Int("maxWorkers", cfg.Queue.MaxWorkers))

			stopOpsServer := setupOpsServer(ctx, cfg, ops.Deps{
				Metrics: m.Handler(),
				Ready:   strg.Ping,
			})

			// wait for interrupt
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout)
			defer cancel()

			logger.Info(shutdownCtx, "stopping worker...")
			if err := riverClient.Stop(shutdownCtx); err != nil {
				logger.Error(shutdownCtx, "could not stop worker gracefully", zap.Error(err))
			}
			stopOpsServer(shutdownCtx)
			_ = m.Shutdown(shutdownCtx)

			return nil
		},
	}

	return cmd
}
