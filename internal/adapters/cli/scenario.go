package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	appsim "github.com/andrescamacho/facsim-go/internal/application/simulation"
	"github.com/andrescamacho/facsim-go/internal/infrastructure/config"
)

// NewScenarioCommand creates the scenario command with subcommands
func NewScenarioCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Inspect scenario files",
		Long: `Validate scenario files or print them with defaults applied.

Examples:
  facsim scenario validate scenarios/fuel_cycle.yaml
  facsim scenario dump scenarios/fuel_cycle.yaml`,
	}

	cmd.AddCommand(newScenarioValidateCommand())
	cmd.AddCommand(newScenarioDumpCommand())

	return cmd
}

// newScenarioValidateCommand creates the scenario validate subcommand
func newScenarioValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Check scenario files without running them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			failed := 0
			for _, path := range args {
				scenario, err := config.LoadScenario(path, cfg.Simulation)
				if err == nil {
					// deploying every facility catches errors the file schema cannot
					_, err = appsim.NewRunner(scenario)
				}
				if err != nil {
					failed++
					fmt.Printf("✗ %s: %v\n", path, err)
					continue
				}
				fmt.Printf("✓ %s: %s, %d facilities, %d steps\n",
					path, scenario.Name, len(scenario.Facilities), scenario.Duration)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d scenarios are invalid", failed, len(args))
			}
			return nil
		},
	}
}

// newScenarioDumpCommand creates the scenario dump subcommand
func newScenarioDumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <scenario.yaml>",
		Short: "Print a scenario with defaults applied and counts expanded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			file, err := config.LoadScenarioFile(args[0])
			if err != nil {
				return err
			}
			file.Normalize(cfg.Simulation)

			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			if err := enc.Encode(file); err != nil {
				return fmt.Errorf("failed to encode scenario: %w", err)
			}
			return enc.Close()
		},
	}
}
