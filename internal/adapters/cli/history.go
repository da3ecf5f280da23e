package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andrescamacho/facsim-go/internal/application/simulation/queries"
)

// NewRunsCommand creates the runs command
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs",
		Long: `List the most recent simulation runs recorded in the database.

Examples:
  facsim runs
  facsim runs --limit 50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, loadConfig(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.mediator.Send(ctx, &queries.ListRunsQuery{Limit: limit})
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}
			runs := resp.(*queries.ListRunsResponse).Runs

			if len(runs) == 0 {
				fmt.Println("No runs found")
				return nil
			}

			fmt.Printf("%-36s %-20s %-10s %-11s %s\n", "RUN ID", "SCENARIO", "STATUS", "STEP", "STARTED")
			fmt.Println("──────────────────────────────────────────────────────────────────────────────────────────────")
			for _, run := range runs {
				fmt.Printf("%-36s %-20s %-10s %-11s %s\n",
					run.ID(),
					truncate(run.Scenario(), 20),
					run.Status(),
					fmt.Sprintf("%d/%d", run.CurrentStep()+1, run.Duration()),
					formatTime(run.StartedAt()))
				if run.LastError() != nil {
					fmt.Printf("  error: %s\n", run.LastError())
				}
			}
			fmt.Printf("\nTotal: %d runs\n", len(runs))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")

	return cmd
}

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	var (
		facilityID string
		render     bool
	)

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded facility snapshots of a run",
		Long: `Show the per-step facility snapshots recorded for a run.

Snapshots are only recorded when simulation.snapshots is enabled or the run
was started with --snapshots. Without a run id the last run is shown.

Examples:
  facsim history
  facsim history <run-id> --facility enrich-1
  facsim history <run-id> --render`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := resolveRunID(args)
			if err != nil {
				return err
			}

			ctx := context.Background()
			a, err := newApp(ctx, loadConfig(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.mediator.Send(ctx, &queries.GetRunHistoryQuery{RunID: runID, Facility: facilityID})
			if err != nil {
				return fmt.Errorf("failed to load history: %w", err)
			}
			history := resp.(*queries.GetRunHistoryResponse)

			fmt.Printf("Run %s (%s): %s\n\n", history.Run.ID(), history.Run.Scenario(), history.Run.Status())
			if len(history.Snapshots) == 0 {
				fmt.Println("No snapshots recorded")
				return nil
			}

			if render {
				for _, snap := range history.Snapshots {
					fmt.Print(snap.Render())
				}
				return nil
			}

			fmt.Printf("%-5s %-16s %-12s %-14s %12s %12s %12s %10s\n",
				"TIME", "FACILITY", "VARIANT", "PHASE", "RESERVES", "PROCESSING", "STOCKS", "RESIDUE")
			fmt.Println("─────────────────────────────────────────────────────────────────────────────────────────────────")
			for _, snap := range history.Snapshots {
				fmt.Printf("%-5d %-16s %-12s %-14s %12.4f %12.4f %12.4f %10.4f\n",
					snap.Time,
					truncate(snap.FacilityID, 16),
					snap.Variant,
					snap.Phase,
					snap.ReservesQty,
					snap.ProcessingQty,
					snap.StocksQty,
					snap.ResidueQty)
			}
			fmt.Printf("\nTotal: %d snapshots\n", len(history.Snapshots))
			return nil
		},
	}

	cmd.Flags().StringVar(&facilityID, "facility", "", "Only show this facility")
	cmd.Flags().BoolVar(&render, "render", false, "Print full snapshot text instead of a table")

	return cmd
}

// NewLogsCommand creates the logs command
func NewLogsCommand() *cobra.Command {
	var (
		limit  int
		offset int
		level  string
	)

	cmd := &cobra.Command{
		Use:   "logs [run-id]",
		Short: "Show persisted log lines of a run",
		Long: `Show log lines persisted for a run (requires logging.persist).

Examples:
  facsim logs <run-id>
  facsim logs <run-id> --level ERROR
  facsim logs --limit 50 --offset 100`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := resolveRunID(args)
			if err != nil {
				return err
			}

			ctx := context.Background()
			a, err := newApp(ctx, loadConfig(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			var levelFilter *string
			if level != "" {
				upper := strings.ToUpper(level)
				levelFilter = &upper
			}

			entries, err := a.logs.GetLogs(ctx, runID, limit, offset, levelFilter)
			if err != nil {
				return fmt.Errorf("failed to get logs: %w", err)
			}
			if len(entries) == 0 {
				fmt.Println("No logs found")
				return nil
			}

			for _, entry := range entries {
				line := fmt.Sprintf("[%s] %-5s %s", entry.Timestamp.Local().Format("2006-01-02 15:04:05"), entry.Level, entry.Message)
				if len(entry.Metadata) > 0 {
					if meta, err := json.Marshal(entry.Metadata); err == nil {
						line += " " + string(meta)
					}
				}
				fmt.Println(line)
			}
			fmt.Printf("\nTotal: %d entries\n", len(entries))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of entries (0 for all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Skip this many entries")
	cmd.Flags().StringVar(&level, "level", "", "Only show entries of this level")

	return cmd
}
