package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/code-editor-backend/config"
	"github.com/GoSim-25-26J-441/code-editor-backend/internal/bootstrap"
	"github.com/GoSim-25-26J-441/code-editor-backend/internal/execution/domain"
	execrepo "github.com/GoSim-25-26J-441/code-editor-backend/internal/execution/repository"
	"github.com/GoSim-25-26J-441/code-editor-backend/internal/logging"
	cronjob "github.com/GoSim-25-26J-441/code-editor-backend/internal/maintenance/cron"
)

// app is filled in by the root command before any subcommand runs.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "worker",
		Short:         "Administrative tasks for the code editor backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.App.Environment, cfg.App.LogLevel)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.AddCommand(newMigrateCommand(a), newSweepCommand(a), newHistoryCommand(a))
	return root
}

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create indexes or schema for the configured project store",
		RunE: func(cmd *cobra.Command, args []string) error {
			// OpenStore migrates before returning.
			_, closeStore, err := bootstrap.OpenStore(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer closeStore(cmd.Context())

			fmt.Fprintf(cmd.OutOrStdout(), "%s store migrated\n", a.cfg.Store.Driver)
			return nil
		},
	}
}

func newSweepCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove idle workspaces that have no stored project once",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := bootstrap.OpenStore(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer closeStore(cmd.Context())

			removed, err := cronjob.NewSweeper(a.cfg.Execution.ProjectsDir, store, a.cfg.Execution.SweepGrace, a.logger).Sweep(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range removed {
				fmt.Fprintln(cmd.OutOrStdout(), "removed", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d workspace(s) removed\n", len(removed))
			return nil
		},
	}
}

func newHistoryCommand(a *app) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history <projectId>",
		Short: "Print the most recent executions of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				limit = a.cfg.Execution.HistoryLimit
			}
			records, err := execrepo.NewHistoryRepository(a.cfg.Execution.OutputDir).
				Recent(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			return renderHistory(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Number of records (defaults to HISTORY_LIMIT)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print records as JSON")
	return cmd
}

func renderHistory(w io.Writer, records []domain.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "no executions recorded")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIMESTAMP\tSTATUS\tRETURNCODE\tFILE")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.Timestamp, r.Status, r.ReturnCode, r.FileName)
	}
	return tw.Flush()
}
