package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andrescamacho/facsim-go/internal/infrastructure/config"
)

// NewConfigCommand creates the config command with subcommands
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage facsim configuration settings.

Configuration is loaded from multiple sources with priority:
1. Environment variables (FS_* prefix)
2. Config file (config.yaml)
3. Default values

The last run is remembered in ~/.facsim/config.json

Examples:
  facsim config show
  facsim config clear-last-run`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigClearLastRunCommand())

	return cmd
}

// newConfigShowCommand creates the config show subcommand
func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			userConfigHandler, err := config.NewUserConfigHandler()
			if err != nil {
				return fmt.Errorf("failed to create user config handler: %w", err)
			}
			userCfg, err := userConfigHandler.Load()
			if err != nil {
				fmt.Printf("Warning: Failed to load user config: %v\n\n", err)
				userCfg = &config.UserConfig{}
			}

			fmt.Println("facsim Configuration")
			fmt.Println("====================")

			fmt.Println("User Preferences:")
			fmt.Printf("  Config file:      %s\n", userConfigHandler.GetConfigPath())
			if userCfg.LastRunID != "" {
				fmt.Printf("  Last Run:         %s (%s)\n", userCfg.LastRunID, userCfg.LastScenario)
			} else {
				fmt.Printf("  Last Run:         (not set)\n")
			}

			fmt.Println("\nDatabase:")
			fmt.Printf("  Type:             %s\n", cfg.Database.Type)
			switch {
			case cfg.Database.URL != "":
				fmt.Printf("  URL:              %s\n", maskPassword(cfg.Database.URL))
			case cfg.Database.Type == "sqlite":
				fmt.Printf("  Path:             %s\n", cfg.Database.Path)
			default:
				fmt.Printf("  Host:             %s\n", cfg.Database.Host)
				fmt.Printf("  Port:             %d\n", cfg.Database.Port)
				fmt.Printf("  Database:         %s\n", cfg.Database.Name)
				fmt.Printf("  User:             %s\n", cfg.Database.User)
			}
			fmt.Printf("  Max Connections:  %d\n", cfg.Database.Pool.MaxOpen)

			fmt.Println("\nSimulation:")
			fmt.Printf("  Default Duration: %d\n", cfg.Simulation.Duration)
			fmt.Printf("  Step Rate:        %g steps/s\n", cfg.Simulation.StepRate)
			fmt.Printf("  Snapshots:        %t\n", cfg.Simulation.Snapshots)
			fmt.Printf("  Parallelism:      %d\n", cfg.Simulation.Parallelism)

			fmt.Println("\nReports:")
			fmt.Printf("  Directory:        %s\n", orNotSet(cfg.Report.Dir))
			fmt.Printf("  S3 Bucket:        %s\n", orNotSet(cfg.Report.S3Bucket))
			if cfg.Report.S3Bucket != "" {
				fmt.Printf("  S3 Prefix:        %s\n", cfg.Report.S3Prefix)
				fmt.Printf("  Region:           %s\n", cfg.Report.Region)
			}

			fmt.Println("\nMetrics:")
			fmt.Printf("  Enabled:          %t\n", cfg.Metrics.Enabled)
			fmt.Printf("  Address:          %s%s\n", cfg.Metrics.Address(), cfg.Metrics.Path)

			fmt.Println("\nLogging:")
			fmt.Printf("  Level:            %s\n", cfg.Logging.Level)
			fmt.Printf("  Format:           %s\n", cfg.Logging.Format)
			fmt.Printf("  Output:           %s\n", cfg.Logging.Output)
			fmt.Printf("  Persist:          %t\n", cfg.Logging.Persist)

			return nil
		},
	}
}

// newConfigClearLastRunCommand creates the config clear-last-run subcommand
func newConfigClearLastRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-last-run",
		Short: "Forget the remembered last run",
		RunE: func(cmd *cobra.Command, args []string) error {
			userConfigHandler, err := config.NewUserConfigHandler()
			if err != nil {
				return fmt.Errorf("failed to create user config handler: %w", err)
			}
			if err := userConfigHandler.SetLastRun("", ""); err != nil {
				return fmt.Errorf("failed to save user config: %w", err)
			}
			fmt.Println("✓ Last run cleared")
			return nil
		},
	}
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
