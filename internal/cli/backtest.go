package cli

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"spx-backtester/internal/config"
	"spx-backtester/internal/engine"
	"spx-backtester/internal/marketdata"
	"spx-backtester/internal/models"
	"spx-backtester/internal/store"
	"spx-backtester/pkg/utils"
)

// addRunCommand registers the backtest execution command.
func addRunCommand(rootCmd *cobra.Command, app *App) {
	var (
		startFlag   string
		endFlag     string
		capitalFlag float64
		sourceFlag  string
		csvFlag     string
		noCurve     bool
	)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a backtest over a date range",
		Example: `  spx-backtest run --start 2024-01-02 --end 2024-03-28
  spx-backtest run --start 2024-01-02 --end 2024-01-31 --source polygon --csv trades.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cmd)
			cfg := app.Config

			if startFlag != "" {
				cfg.Backtest.Start = startFlag
			}
			if endFlag != "" {
				cfg.Backtest.End = endFlag
			}
			if capitalFlag > 0 {
				cfg.Backtest.InitialCapital = capitalFlag
			}
			if sourceFlag != "" {
				cfg.Data.Source = sourceFlag
			}
			if err := cfg.ParseDates(); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if cfg.Backtest.StartDate.IsZero() || cfg.Backtest.EndDate.IsZero() {
				return fmt.Errorf("start and end dates are required (--start/--end or config file)")
			}

			source, err := buildSource(app)
			if err != nil {
				return err
			}

			eng := engine.New(source, cfg.Backtest, cfg.Strategy, app.Logger)
			started := time.Now()
			result, err := eng.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("backtest failed: %w", err)
			}
			elapsed := time.Since(started)

			if out.IsJSON() {
				return out.JSON(result)
			}

			printSummary(out, cfg, result, elapsed)
			if !noCurve {
				out.Println()
				out.Println(RenderEquityCurve(result.EquityCurve, 60, 12))
			}

			if csvFlag != "" {
				if err := writeTradesCSV(csvFlag, result.Trades); err != nil {
					return fmt.Errorf("writing csv: %w", err)
				}
				out.Printf("Trades exported to %s\n", csvFlag)
			}

			if app.Store != nil {
				finalEquity := cfg.Backtest.InitialCapital + result.Statistics.TotalPnL
				runID, err := app.Store.SaveRun(cmd.Context(), &store.Run{
					CreatedAt:   time.Now(),
					StartDate:   cfg.Backtest.StartDate,
					EndDate:     cfg.Backtest.EndDate,
					DataSource:  cfg.Data.Source,
					InitialCap:  cfg.Backtest.InitialCapital,
					FinalEquity: finalEquity,
					TotalTrades: result.Statistics.TotalTrades,
					TotalPnL:    result.Statistics.TotalPnL,
					Params:      cfg.Strategy,
					Statistics:  result.Statistics,
				}, result.Trades)
				if err != nil {
					out.Warn("Could not save run: %v", err)
				} else {
					out.Printf("Saved as run #%d\n", runID)
				}
			}
			return nil
		},
	}

	runCmd.Flags().StringVar(&startFlag, "start", "", "start date (YYYY-MM-DD)")
	runCmd.Flags().StringVar(&endFlag, "end", "", "end date (YYYY-MM-DD)")
	runCmd.Flags().Float64Var(&capitalFlag, "capital", 0, "initial capital")
	runCmd.Flags().StringVar(&sourceFlag, "source", "", "data source: synthetic or polygon")
	runCmd.Flags().StringVar(&csvFlag, "csv", "", "export trades to a CSV file")
	runCmd.Flags().BoolVar(&noCurve, "no-curve", false, "suppress the ASCII equity curve")

	rootCmd.AddCommand(runCmd)
}

// buildSource instantiates the configured market data source.
func buildSource(app *App) (marketdata.Source, error) {
	switch app.Config.Data.Source {
	case "synthetic":
		return marketdata.NewSynthetic(app.Config.Data.Spread), nil
	case "polygon":
		if app.Config.Data.APIKey == "" {
			return nil, fmt.Errorf("polygon source requires an API key (set POLYGON_API_KEY)")
		}
		return marketdata.NewPolygonClient(
			app.Config.Data.BaseURL,
			app.Config.Data.APIKey,
			app.Config.Data.Underlying,
			app.Config.Data.Liquidity,
			app.Logger,
		), nil
	default:
		return nil, fmt.Errorf("unknown data source %q", app.Config.Data.Source)
	}
}

func printSummary(out *Output, cfg *config.Config, result *models.BacktestResult, elapsed time.Duration) {
	stats := result.Statistics

	out.Header("Backtest Results")
	out.Printf("Period:          %s to %s (%s source, %s)\n",
		cfg.Backtest.StartDate.Format("2006-01-02"),
		cfg.Backtest.EndDate.Format("2006-01-02"),
		cfg.Data.Source, elapsed.Round(time.Millisecond))
	out.Printf("Initial capital: %s\n", utils.FormatCurrency(cfg.Backtest.InitialCapital))
	out.Printf("Total P&L:       %s (%s)\n", out.PnL(stats.TotalPnL), utils.FormatPercent(stats.ReturnPct))
	out.Println()

	out.Printf("Trades:          %d (%d wins, %d losses, %.1f%% win rate)\n",
		stats.TotalTrades, stats.WinningTrades, stats.LosingTrades, stats.WinRate)
	out.Printf("Avg trade:       %s   Best: %s   Worst: %s\n",
		out.PnL(stats.AvgTradePnL), out.PnL(stats.BestTrade), out.PnL(stats.WorstTrade))
	out.Printf("Profit factor:   %s\n", formatProfitFactor(stats.ProfitFactor))
	out.Printf("Max drawdown:    %.2f%%\n", stats.MaxDrawdown)
	out.Printf("Sharpe ratio:    %.2f\n", stats.SharpeRatio)
	out.Println()

	out.Printf("Iron Condors:    %d trades, %s total, avg credit %.2f\n",
		stats.IronCondor.TotalTrades, out.PnL(stats.IronCondor.TotalPnL), stats.IronCondor.AvgCredit)
	out.Printf("Straddles:       %d trades, %s total, %d partial exits (%s)\n",
		stats.Straddle.TotalTrades, out.PnL(stats.Straddle.TotalPnL),
		stats.Straddle.PartialExits, out.PnL(stats.Straddle.PartialExitPnL))
}

func formatProfitFactor(pf float64) string {
	if math.IsInf(pf, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", pf)
}
