package main

import (
	"encoding/json"
	"fmt"
	"io"
	"xssdawn/internal/config"
	"xssdawn/internal/runs"
	"xssdawn/pkg/domain"
	"xssdawn/pkg/serrors"

	"github.com/spf13/cobra"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("could not encode output: %w", err)
	}

	return nil
}

// runsCommand constructs the 'runs' subcommand group used to inspect stored runs.
func runsCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspects recorded and queued runs",
	}
	cmd.AddCommand(runsListCommand(cfg), runsShowCommand(cfg))

	return cmd
}

func runsListCommand(cfg *config.Config) *cobra.Command {
	var (
		target string
		status string
		cursor string
		limit  uint
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Lists runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			strg, closeStrg, err := getPostgres(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStrg()

			list, next, err := runs.New(strg, runs.NewOptions(cfg)).
				Runs(ctx, target, domain.RunStatus(status), cursor, limit)
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), struct {
				Runs       []domain.Run `json:"runs"`
				NextCursor string       `json:"nextCursor,omitempty"`
			}{Runs: list, NextCursor: next})
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&target, "target", "d", "", "Only runs for this target")
	fs.StringVar(&status, "status", "", "Only runs with this status (PENDING, RUNNING, COMPLETED, FAILED)")
	fs.StringVar(&cursor, "cursor", "", "Cursor returned by the previous page")
	fs.UintVar(&limit, "limit", runs.DefaultLimit, "Page size")

	return cmd
}

func runsShowCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Prints a run with its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := domain.ParseRunID(args[0])
			if err != nil {
				return serrors.Wrap(serrors.ErrBadRequest, err, "invalid run id")
			}

			strg, closeStrg, err := getPostgres(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStrg()

			run, err := runs.New(strg, runs.NewOptions(cfg)).Result(ctx, id)
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), run)
		},
	}
}
