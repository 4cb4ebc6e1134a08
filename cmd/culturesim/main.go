// Command culturesim runs cultural trait evolution simulations.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/talgya/mini-culture/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "culturesim",
		Short: "Cultural trait evolution under social-learning strategies",
		Long: `culturesim evolves a well-mixed population of agents carrying two
cultural traits across discrete generations, under one of several
transmission strategies, and records the trait-frequency trajectories.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "", "YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newRunCmd(),
		newBatchCmd(),
		newServeCmd(),
		newStrategiesCmd(),
	)
	return rootCmd
}

// loadConfig resolves defaults, the config file and the environment, then
// installs the logger. Command flags are applied by the caller before Validate.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if err := setupLogging(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(level string) error {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	}))
	slog.SetDefault(logger)
	return nil
}
