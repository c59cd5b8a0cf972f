package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"spx-backtester/internal/store"
	"spx-backtester/pkg/utils"
)

// addRunsCommands registers the stored-run inspection commands.
func addRunsCommands(rootCmd *cobra.Command, app *App) {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect stored backtest runs",
	}

	var limitFlag int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("run store unavailable")
			}
			out := NewOutput(cmd)

			runs, err := app.Store.ListRuns(cmd.Context(), store.RunFilter{Limit: limitFlag})
			if err != nil {
				return err
			}
			if out.IsJSON() {
				return out.JSON(runs)
			}
			if len(runs) == 0 {
				out.Println("No stored runs.")
				return nil
			}

			out.Header("Stored Runs")
			out.Printf("%-5s %-20s %-24s %-10s %7s %14s\n",
				"ID", "Created", "Period", "Source", "Trades", "P&L")
			for _, r := range runs {
				period := r.StartDate.Format("2006-01-02") + " to " + r.EndDate.Format("2006-01-02")
				out.Printf("%-5d %-20s %-24s %-10s %7d %14s\n",
					r.ID, r.CreatedAt.Format("2006-01-02 15:04"), period,
					r.DataSource, r.TotalTrades, out.PnL(r.TotalPnL))
			}
			return nil
		},
	}
	listCmd.Flags().IntVar(&limitFlag, "limit", 20, "maximum runs to list")

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a stored run's statistics and trades",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("run store unavailable")
			}
			out := NewOutput(cmd)

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run id %q", args[0])
			}
			run, err := app.Store.GetRun(cmd.Context(), id)
			if err != nil {
				return err
			}
			trades, err := app.Store.GetRunTrades(cmd.Context(), id)
			if err != nil {
				return err
			}
			if out.IsJSON() {
				return out.JSON(map[string]interface{}{"run": run, "trades": trades})
			}

			stats := run.Statistics
			out.Header(fmt.Sprintf("Run #%d", run.ID))
			out.Printf("Period:          %s to %s (%s source)\n",
				run.StartDate.Format("2006-01-02"), run.EndDate.Format("2006-01-02"), run.DataSource)
			out.Printf("Initial capital: %s\n", utils.FormatCurrency(run.InitialCap))
			out.Printf("Final equity:    %s\n", utils.FormatCurrency(run.FinalEquity))
			out.Printf("Total P&L:       %s (%s)\n", out.PnL(run.TotalPnL), utils.FormatPercent(stats.ReturnPct))
			out.Printf("Trades:          %d (%.1f%% win rate)\n", stats.TotalTrades, stats.WinRate)
			out.Printf("Max drawdown:    %.2f%%   Sharpe: %.2f\n", stats.MaxDrawdown, stats.SharpeRatio)
			out.Println()

			out.Printf("%-22s %-28s %-20s %8s %14s\n", "Trade", "Strategy", "Entry", "Size", "P&L")
			for _, t := range trades {
				out.Printf("%-22s %-28s %-20s %8d %14s\n",
					t.ID, t.Describe(), t.EntryTime.Format("2006-01-02 15:04"), t.Size, out.PnL(t.PnL))
			}
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("run store unavailable")
			}
			out := NewOutput(cmd)

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run id %q", args[0])
			}
			if err := app.Store.DeleteRun(cmd.Context(), id); err != nil {
				return err
			}
			out.Printf("Run #%d deleted\n", id)
			return nil
		},
	}

	runsCmd.AddCommand(listCmd, showCmd, deleteCmd)
	rootCmd.AddCommand(runsCmd)
}
