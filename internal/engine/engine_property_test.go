package engine

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"spx-backtester/internal/models"
)

// Property: partial exits never drive a leg's remaining position negative,
// and the accumulated partial P&L always equals the sum over the recorded
// fills.
func TestProperty_PartialExitAccounting(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("remaining position stays in [0, original] across touches", prop.ForAll(
		func(size int, exitPct float64, entryPrice, bid float64, touches int) bool {
			src := newFakeSource()
			src.quotes["CALL"] = models.Quote{Bid: bid, Ask: bid + 0.4}
			src.quotes["PUT"] = models.Quote{Bid: 0.05, Ask: 0.45}

			trade := newTestStraddle("CALL", "PUT", 4510, size, entryPrice)
			trade.Straddle.ExitPercentage = exitPct

			m := NewPositionManager(src, testBacktestConfig(), zerolog.Nop())
			now := time.Date(2024, 3, 4, 11, 0, 0, 0, time.UTC)
			for i := 0; i < touches; i++ {
				m.CheckExits(context.Background(), []*models.Trade{trade}, 4510.0, now.Add(time.Duration(i)*time.Minute))
			}

			for _, leg := range trade.Legs {
				if leg.RemainingPosition < 0 || leg.RemainingPosition > leg.Position {
					return false
				}
				exited := 0
				for _, pe := range leg.PartialExits {
					exited += pe.Size
				}
				if leg.Position-exited != leg.RemainingPosition {
					return false
				}
			}

			var sum float64
			for _, leg := range trade.Legs {
				for _, pe := range leg.PartialExits {
					sum += pe.PnL
				}
			}
			return floatsClose(sum, trade.Straddle.PartialPnL)
		},
		gen.IntRange(1, 50),
		gen.Float64Range(0.0, 1.0),
		gen.Float64Range(0.5, 20.0),
		gen.Float64Range(0.05, 100.0),
		gen.IntRange(0, 6),
	))

	properties.TestingRun(t)
}

// Property: the profit factor is never negative and the drawdown always
// lands in [0, 100] for positive equity curves.
func TestProperty_StatisticsBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("profit factor >= 0 and drawdown within [0, 100]", prop.ForAll(
		func(pnls []float64) bool {
			trades := make([]*models.Trade, len(pnls))
			equity := []models.EquityPoint{{Date: time.Now(), Equity: 100000}}
			capital := 100000.0
			for i, p := range pnls {
				trades[i] = pnlTrade(models.TradeIronCondor, p)
				capital += p
				if capital <= 0 {
					capital = 1
				}
				equity = append(equity, models.EquityPoint{Date: time.Now(), Equity: capital})
			}

			stats := ComputeStatistics(trades, equity, 100000, capital)
			if stats.ProfitFactor < 0 {
				return false
			}
			if stats.MaxDrawdown < 0 || stats.MaxDrawdown > 100 {
				return false
			}
			return stats.WinningTrades+stats.LosingTrades <= stats.TotalTrades
		},
		gen.SliceOfN(10, gen.Float64Range(-5000, 5000)),
	))

	properties.TestingRun(t)
}

// Property: for any session data, the engine books at most one iron condor
// and one straddle, and every booked trade leaves the day closed.
func TestProperty_OneCondorPerDay(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	properties.Property("at most one condor, all trades closed", prop.ForAll(
		func(vol2, vol3 int64) bool {
			src := newFakeSource()
			buildTradingDay(src, day)
			// Perturb the liquidity series so the signal sometimes fires
			// and sometimes does not.
			src.volumes[dayKey(day)][2].Volume = vol2
			src.volumes[dayKey(day)][3].Volume = vol3

			cfg := testBacktestConfig()
			cfg.StartDate = day
			cfg.EndDate = day

			eng := New(src, cfg, engineTestParams(), zerolog.Nop())
			result, err := eng.Run(context.Background())
			if err != nil {
				return false
			}

			condors := 0
			for _, tr := range result.Trades {
				if tr.Type == models.TradeIronCondor {
					condors++
				}
				if tr.IsOpen() {
					return false
				}
			}
			return condors <= 1
		},
		gen.Int64Range(1, 2000),
		gen.Int64Range(1, 2000),
	))

	properties.TestingRun(t)
}

func floatsClose(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-6
}
