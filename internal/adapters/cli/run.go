package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/andrescamacho/facsim-go/internal/adapters/metrics"
	"github.com/andrescamacho/facsim-go/internal/adapters/report"
	"github.com/andrescamacho/facsim-go/internal/application/common"
	"github.com/andrescamacho/facsim-go/internal/application/simulation/commands"
	"github.com/andrescamacho/facsim-go/internal/domain/simulation"
	"github.com/andrescamacho/facsim-go/internal/infrastructure/config"
	"github.com/andrescamacho/facsim-go/internal/infrastructure/pidfile"
)

// runOutcome is one scenario's result for the summary table
type runOutcome struct {
	path     string
	scenario string
	resp     *commands.RunScenarioResponse
	err      error
}

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	var (
		stepRate     float64
		noPersist    bool
		serveMetrics bool
		reportDir    string
		snapshots    bool
		parallelism  int
	)

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>...",
		Short: "Run one or more scenarios",
		Long: `Run scenarios to completion.

Every scenario file is loaded and validated before any of them starts.
Scenarios run independently: one failing run does not stop the others.
Ctrl-C stops all running scenarios after their current step.

Examples:
  facsim run scenarios/fuel_cycle.yaml
  facsim run a.yaml b.yaml --parallelism 2
  facsim run scenarios/fuel_cycle.yaml --step-rate 5 --metrics
  facsim run scenarios/fuel_cycle.yaml --no-persist --report-dir reports`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if cmd.Flags().Changed("step-rate") {
				cfg.Simulation.StepRate = stepRate
			}
			if cmd.Flags().Changed("metrics") {
				cfg.Metrics.Enabled = serveMetrics
			}
			if cmd.Flags().Changed("snapshots") {
				cfg.Simulation.Snapshots = snapshots
			}
			if cmd.Flags().Changed("parallelism") {
				cfg.Simulation.Parallelism = parallelism
			}
			if reportDir != "" {
				cfg.Report.Dir = reportDir
			}
			if err := config.ValidateConfig(cfg); err != nil {
				return fmt.Errorf("invalid run options: %w", err)
			}

			scenarios := make([]*simulation.Scenario, len(args))
			for i, path := range args {
				scenario, err := config.LoadScenario(path, cfg.Simulation)
				if err != nil {
					return fmt.Errorf("failed to load %s: %w", path, err)
				}
				scenarios[i] = scenario
			}

			if !noPersist && cfg.Database.IsFileBacked() {
				lock := pidfile.ForDatabase(cfg.Database.Path)
				if err := lock.Acquire(); err != nil {
					return err
				}
				defer lock.Release()
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, !noPersist)
			if err != nil {
				return err
			}
			defer a.Close()

			if cfg.Metrics.Enabled {
				go func() {
					if err := metrics.Serve(ctx, cfg.Metrics.Address(), cfg.Metrics.Path); err != nil {
						fmt.Fprintf(os.Stderr, "metrics server stopped: %v\n", err)
					}
				}()
				fmt.Printf("Metrics available at http://%s%s\n", cfg.Metrics.Address(), cfg.Metrics.Path)
			}

			outcomes := runScenarios(ctx, a, args, scenarios)
			printOutcomes(outcomes)

			failed := 0
			var last *runOutcome
			for i := range outcomes {
				if outcomes[i].err != nil {
					failed++
					continue
				}
				last = &outcomes[i]
			}
			if last != nil {
				if handler, err := config.NewUserConfigHandler(); err == nil {
					if err := handler.SetLastRun(last.resp.Run.ID(), last.path); err != nil {
						fmt.Printf("Warning: Failed to save last run: %v\n", err)
					}
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d scenarios failed", failed, len(outcomes))
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&stepRate, "step-rate", 0, "Steps per second (0 runs unpaced)")
	cmd.Flags().BoolVar(&noPersist, "no-persist", false, "Do not record the run in the database")
	cmd.Flags().BoolVar(&serveMetrics, "metrics", false, "Expose Prometheus metrics while running")
	cmd.Flags().StringVar(&reportDir, "report-dir", "", "Write a YAML report per run to this directory")
	cmd.Flags().BoolVar(&snapshots, "snapshots", false, "Persist every facility snapshot")
	cmd.Flags().IntVar(&parallelism, "parallelism", 0, "Maximum scenarios running at once")

	return cmd
}

// runScenarios runs each scenario through the mediator with bounded parallelism
func runScenarios(ctx context.Context, a *app, paths []string, scenarios []*simulation.Scenario) []runOutcome {
	outcomes := make([]runOutcome, len(scenarios))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(a.cfg.Simulation.Parallelism)
	for i, scenario := range scenarios {
		i, scenario := i, scenario
		g.Go(func() error {
			runCtx := common.WithLogger(ctx, a.logger(scenario.Name))
			out := runOutcome{path: paths[i], scenario: scenario.Name}

			resp, err := a.mediator.Send(runCtx, &commands.RunScenarioCommand{
				Scenario: scenario,
				StepRate: a.cfg.Simulation.StepRate,
			})
			if err != nil {
				out.err = err
			} else {
				out.resp = resp.(*commands.RunScenarioResponse)
				if err := a.publisher.Publish(runCtx, report.New(out.resp.Run, out.resp.Result)); err != nil {
					common.LoggerFromContext(runCtx).Log("ERROR", "Failed to publish run report", map[string]interface{}{
						"run_id": out.resp.Run.ID(),
						"error":  err.Error(),
					})
				}
			}

			mu.Lock()
			outcomes[i] = out
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func printOutcomes(outcomes []runOutcome) {
	fmt.Printf("\n%-36s %-20s %-10s %-6s %s\n", "RUN ID", "SCENARIO", "STATUS", "STEPS", "WITHDRAWN")
	fmt.Println("────────────────────────────────────────────────────────────────────────────────────────────")
	for _, out := range outcomes {
		if out.err != nil {
			fmt.Printf("%-36s %-20s %-10s %-6s %s\n", "-", truncate(out.scenario, 20), "FAILED", "-", out.err)
			continue
		}
		total := 0.0
		for _, qty := range out.resp.Result.Withdrawn {
			total += qty
		}
		fmt.Printf("%-36s %-20s %-10s %-6d %.4f kg\n",
			out.resp.Run.ID(), truncate(out.scenario, 20), out.resp.Run.Status(), out.resp.Result.Steps, total)
	}
	fmt.Printf("\nTotal: %d runs\n", len(outcomes))
}
