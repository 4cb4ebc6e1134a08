package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/mini-culture/internal/batch"
	"github.com/talgya/mini-culture/internal/params"
	"github.com/talgya/mini-culture/internal/persistence"
	"github.com/talgya/mini-culture/internal/report"
)

// DefaultParamsFile is the parameter table read when --params is not given.
const DefaultParamsFile = "paramaters.csv"

func newBatchCmd() *cobra.Command {
	var (
		paramsPath string
		workers    int
		dbPath     string
		noPlots    bool
		wireParams bool
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run every row of a parameter table",
		Long: `batch reads a parameter table with the columns
n_agents, trait_p, trait_2_p, link, additional_payoff
and runs one simulation per row in parallel. Each run writes a plot, and
the batch writes simulation_results.csv into the output directory.`,
		Example: `  culturesim batch --params paramaters.csv --workers 8 --seed 7
  culturesim batch --params sweep.csv --db data/runs.db --strategy direct_biased_transmission`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyCommonFlags(cmd, cfg)
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			if cmd.Flags().Changed("db") {
				cfg.DBPath = dbPath
			}
			if cmd.Flags().Changed("wire-params") {
				cfg.WireParams = wireParams
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			records, rowErrs, err := params.Load(paramsPath)
			if err != nil {
				return err
			}
			for _, re := range rowErrs {
				slog.Warn("skipping parameter row", "row", re.Row, "column", re.Column, "error", re.Err)
			}
			if len(records) == 0 {
				return fmt.Errorf("no usable rows in %s", paramsPath)
			}

			var db *persistence.DB
			if cfg.DBPath != "" {
				db, err = persistence.Open(cfg.DBPath)
				if err != nil {
					return err
				}
				defer db.Close()
				slog.Info("database opened", "path", cfg.DBPath)
			}

			b := batch.New(cfg)
			if !noPlots {
				b.AfterRun = func(_ context.Context, r *batch.Result) error {
					name, err := report.WritePlotFile(cfg.OutputDir, r.Record, r.Trajectory)
					if err != nil {
						return err
					}
					r.Filename = name
					return nil
				}
			}

			start := time.Now()
			results, runErr := b.Run(cmd.Context(), records)
			if results == nil {
				return runErr
			}

			path, err := report.WriteResultsFile(cfg.OutputDir, results)
			if err != nil {
				return errors.Join(runErr, err)
			}
			slog.Info("results written", "path", path)

			if db != nil {
				if err := db.SaveResults(results, cfg.Strategy, cfg.Generations); err != nil {
					return errors.Join(runErr, fmt.Errorf("save results: %w", err))
				}
				if err := db.SaveMeta("last_batch", time.Now().UTC().Format(time.RFC3339)); err != nil {
					slog.Warn("failed to save meta", "error", err)
				}
				if err := db.SaveMeta("last_batch_runs", strconv.Itoa(len(results))); err != nil {
					slog.Warn("failed to save meta", "error", err)
				}
			}

			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
				}
			}
			slog.Info("batch finished",
				"runs", len(results),
				"failed", failed,
				"skipped_rows", len(rowErrs),
				"elapsed", time.Since(start).Round(time.Millisecond),
			)
			return runErr
		},
	}

	cmd.Flags().StringVar(&paramsPath, "params", DefaultParamsFile, "Parameter table (CSV)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Runs executing at once (default from config, 4)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite file to record runs in")
	cmd.Flags().BoolVar(&noPlots, "no-plots", false, "Skip writing per-run plots")
	cmd.Flags().BoolVar(&wireParams, "wire-params", false, "Let table priors, link and bonus shape the agents")
	addCommonFlags(cmd)
	return cmd
}
