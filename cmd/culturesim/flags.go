package main

import (
	"github.com/spf13/cobra"

	"github.com/talgya/mini-culture/internal/config"
)

// addCommonFlags registers the flags shared by run and batch.
func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().Int("generations", 0, "Generations per run (default from config, 150)")
	cmd.Flags().String("strategy", "", "Transmission strategy (see 'culturesim strategies')")
	cmd.Flags().Int64("seed", 0, "Random seed (0 = random)")
	cmd.Flags().String("output", "", "Output directory for plots and results")
}

// applyCommonFlags overrides cfg with any flag the user set explicitly.
func applyCommonFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("generations") {
		cfg.Generations, _ = f.GetInt("generations")
	}
	if f.Changed("strategy") {
		cfg.Strategy, _ = f.GetString("strategy")
	}
	if f.Changed("seed") {
		cfg.Seed, _ = f.GetInt64("seed")
	}
	if f.Changed("output") {
		cfg.OutputDir, _ = f.GetString("output")
	}
}
