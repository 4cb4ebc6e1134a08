package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/talgya/mini-culture/internal/engine"
	"github.com/talgya/mini-culture/internal/params"
	"github.com/talgya/mini-culture/internal/report"
	"github.com/talgya/mini-culture/internal/transmission"
)

func newRunCmd() *cobra.Command {
	var (
		size     int
		jsonOut  bool
		plot     bool
		progress int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one simulation and print its trajectory",
		Example: `  culturesim run --size 1000 --generations 150 --strategy indirect_biased_transmission --seed 42
  culturesim run --size 200 --strategy biased_mutation --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyCommonFlags(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			strategy, err := transmission.New(cfg.Strategy, cfg.Rates)
			if err != nil {
				return err
			}

			runner := &engine.Runner{ProgressEvery: progress}
			traj, err := runner.Run(cmd.Context(), engine.RunSpec{
				PopulationSize: size,
				Generations:    cfg.Generations,
				Strategy:       strategy,
				Seed:           cfg.Seed,
			})
			if err != nil {
				return err
			}

			if plot {
				rec := params.Record{
					Row:            1,
					PopulationSize: size,
					TraitPrior:     traj.Model.TraitPrior,
					Trait2Prior:    traj.Model.Trait2Prior,
					Link:           traj.Model.LinkProbability,
					PayoffBonus:    int(traj.Model.PayoffBonus),
				}
				name, err := report.WritePlotFile(cfg.OutputDir, rec, traj)
				if err != nil {
					return err
				}
				slog.Info("plot written", "dir", cfg.OutputDir, "file", name)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(traj)
			}

			fmt.Fprintf(out, "strategy=%s population=%d generations=%d seed=%d\n",
				traj.Strategy, traj.PopulationSize, traj.Generations, traj.Seed)
			fmt.Fprintln(out, "generation\ttrait_a\ttrait_x")
			for i := range traj.TraitA {
				fmt.Fprintf(out, "%d\t%.4f\t%.4f\n", i+1, traj.TraitA[i], traj.TraitX[i])
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&size, "size", 1000, "Population size")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the trajectory as JSON")
	cmd.Flags().BoolVar(&plot, "plot", false, "Also write an SVG plot to the output directory")
	cmd.Flags().IntVar(&progress, "progress", 0, "Log progress every N generations (0 = off)")
	addCommonFlags(cmd)
	return cmd
}
