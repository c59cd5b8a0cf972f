package engine

import (
	"math"

	"spx-backtester/internal/models"
)

// tradingDaysPerYear annualizes the Sharpe ratio from daily returns.
const tradingDaysPerYear = 252

// ComputeStatistics summarizes a run. A run with no trades yields the
// zero-valued bundle rather than NaNs.
func ComputeStatistics(trades []*models.Trade, equity []models.EquityPoint, initialCapital, finalCapital float64) models.Statistics {
	var stats models.Statistics
	if len(trades) == 0 {
		return stats
	}

	stats.TotalTrades = len(trades)
	stats.BestTrade = math.Inf(-1)
	stats.WorstTrade = math.Inf(1)

	var grossProfit, grossLoss float64
	for _, t := range trades {
		stats.TotalPnL += t.PnL
		if t.PnL > stats.BestTrade {
			stats.BestTrade = t.PnL
		}
		if t.PnL < stats.WorstTrade {
			stats.WorstTrade = t.PnL
		}
		switch {
		case t.PnL > 0:
			stats.WinningTrades++
			grossProfit += t.PnL
		case t.PnL < 0:
			stats.LosingTrades++
			grossLoss += t.PnL
		}
	}

	stats.WinRate = float64(stats.WinningTrades) / float64(stats.TotalTrades) * 100
	stats.AvgTradePnL = stats.TotalPnL / float64(stats.TotalTrades)
	if stats.WinningTrades > 0 {
		stats.AvgWin = grossProfit / float64(stats.WinningTrades)
	}
	if stats.LosingTrades > 0 {
		stats.AvgLoss = grossLoss / float64(stats.LosingTrades)
	}

	switch {
	case grossLoss == 0 && grossProfit > 0:
		stats.ProfitFactor = math.Inf(1)
	case grossLoss != 0:
		stats.ProfitFactor = grossProfit / math.Abs(grossLoss)
	}

	stats.MaxDrawdown = maxDrawdown(equity)
	stats.SharpeRatio = sharpeRatio(equity)
	if initialCapital != 0 {
		stats.ReturnPct = (finalCapital - initialCapital) / initialCapital * 100
	}

	stats.IronCondor = typeStats(trades, models.TradeIronCondor)
	stats.Straddle = typeStats(trades, models.TradeStraddle)
	return stats
}

func typeStats(trades []*models.Trade, typ models.TradeType) models.TypeStats {
	var ts models.TypeStats
	var creditSum float64
	for _, t := range trades {
		if t.Type != typ {
			continue
		}
		ts.TotalTrades++
		ts.TotalPnL += t.PnL
		switch {
		case t.PnL > 0:
			ts.WinningTrades++
		case t.PnL < 0:
			ts.LosingTrades++
		}
		if t.IronCondor != nil {
			creditSum += t.IronCondor.NetCredit
		}
		if t.Straddle != nil {
			ts.PartialExits += t.PartialExitCount()
			ts.PartialExitPnL += t.Straddle.PartialPnL
		}
	}
	if ts.TotalTrades == 0 {
		return ts
	}
	ts.WinRate = float64(ts.WinningTrades) / float64(ts.TotalTrades) * 100
	ts.AvgPnL = ts.TotalPnL / float64(ts.TotalTrades)
	if typ == models.TradeIronCondor {
		ts.AvgCredit = creditSum / float64(ts.TotalTrades)
	}
	return ts
}

// maxDrawdown is the deepest peak-to-trough decline on the equity curve,
// in percent, reported as a positive number.
func maxDrawdown(equity []models.EquityPoint) float64 {
	if len(equity) == 0 {
		return 0
	}
	peak := equity[0].Equity
	worst := 0.0
	for _, p := range equity {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			dd := (p.Equity - peak) / peak
			if dd < worst {
				worst = dd
			}
		}
	}
	return math.Abs(worst) * 100
}

// sharpeRatio annualizes the mean-over-std of daily equity returns.
// Fewer than two points, or zero variance, yields zero.
func sharpeRatio(equity []models.EquityPoint) float64 {
	if len(equity) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev == 0 {
			continue
		}
		returns = append(returns, (equity[i].Equity-prev)/prev)
	}
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))
	if variance == 0 {
		return 0
	}
	return math.Sqrt(tradingDaysPerYear) * mean / math.Sqrt(variance)
}
