package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/utkarsh5026/futurepool/internal/config"
	"github.com/utkarsh5026/futurepool/internal/logging"
)

// settings is populated by the root command before any subcommand runs.
var settings *config.Settings

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "futurepool",
	Short: "Run many tasks concurrently and collect their results",
	Long: `futurepool runs demonstrations of a futures-based worker pool: tasks that
update one lock-guarded counter, pages fetched concurrently, and CPU-bound
factoring on goroutines versus separate worker processes.

Settings are read from an optional YAML file and FUTUREPOOL_* environment
variables; flags take precedence.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFile, err := cmd.Flags().GetString("config")
		if err != nil {
			return err
		}

		settings, err = config.NewSettings(configFile)
		if err != nil {
			return err
		}
		if err := applyFlags(cmd, settings); err != nil {
			return err
		}
		if err := settings.Validate(); err != nil {
			return fmt.Errorf("invalid flags: %w", err)
		}

		logger, err := logging.New(os.Stderr, settings.Logging.Level, settings.Logging.Format)
		if err != nil {
			return err
		}
		cmd.SetContext(logger.WithContext(cmd.Context()))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML settings file")
	rootCmd.PersistentFlags().IntP("workers", "w", 0, "Number of concurrent workers (overrides settings)")
	rootCmd.PersistentFlags().String("log-level", "", "Logging level such as debug, info, error (overrides settings)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format, console or json (overrides settings)")

	rootCmd.AddCommand(counterCmd, fetchCmd, factorCmd, configCmd)
}

// applyFlags copies explicitly set flags over the loaded settings.
func applyFlags(cmd *cobra.Command, s *config.Settings) error {
	flags := cmd.Flags()

	if flags.Changed("workers") {
		v, err := flags.GetInt("workers")
		if err != nil {
			return err
		}
		s.Pool.Workers = v
	}
	if flags.Changed("log-level") {
		v, err := flags.GetString("log-level")
		if err != nil {
			return err
		}
		s.Logging.Level = v
	}
	if flags.Changed("log-format") {
		v, err := flags.GetString("log-format")
		if err != nil {
			return err
		}
		s.Logging.Format = v
	}
	return nil
}

func loggerFrom(cmd *cobra.Command) zerolog.Logger {
	return *zerolog.Ctx(cmd.Context())
}
