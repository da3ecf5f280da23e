package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
)

// NewRootCommand creates the root command for the CLI
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "facsim",
		Short: "facsim - Staged-inventory facility simulator",
		Long: `facsim runs fuel-cycle facility scenarios step by step.

Each facility holds material in reserves, processing and stocks, trades
with a scripted exchange and reports its state after every step.

Examples:
  facsim run scenarios/fuel_cycle.yaml
  facsim run scenarios/*.yaml --step-rate 10 --metrics
  facsim runs
  facsim history <run-id> --facility enrich-1 --render
  facsim logs <run-id> --level WARN
  facsim scenario validate scenarios/fuel_cycle.yaml
  facsim config show`,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")

	// Add command groups
	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewRunsCommand())
	rootCmd.AddCommand(NewHistoryCommand())
	rootCmd.AddCommand(NewLogsCommand())
	rootCmd.AddCommand(NewScenarioCommand())
	rootCmd.AddCommand(NewConfigCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
