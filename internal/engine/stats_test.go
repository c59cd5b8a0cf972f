package engine

import (
	"math"
	"testing"
	"time"

	"spx-backtester/internal/models"
)

func pnlTrade(typ models.TradeType, pnl float64) *models.Trade {
	t := &models.Trade{Type: typ, PnL: pnl, Status: models.TradeClosed}
	if typ == models.TradeIronCondor {
		t.IronCondor = &models.IronCondorMeta{NetCredit: 2.0}
	} else {
		t.Straddle = &models.StraddleMeta{}
	}
	return t
}

func TestComputeStatisticsEmpty(t *testing.T) {
	stats := ComputeStatistics(nil, nil, 100000, 100000)
	if stats.TotalTrades != 0 || stats.TotalPnL != 0 || stats.WinRate != 0 {
		t.Errorf("expected zero-valued statistics, got %+v", stats)
	}
	if stats.ProfitFactor != 0 || stats.SharpeRatio != 0 {
		t.Errorf("ratios should be zero with no trades: %+v", stats)
	}
}

func TestComputeStatisticsBasics(t *testing.T) {
	trades := []*models.Trade{
		pnlTrade(models.TradeIronCondor, 500),
		pnlTrade(models.TradeIronCondor, -200),
		pnlTrade(models.TradeStraddle, 300),
		pnlTrade(models.TradeStraddle, 0),
	}

	stats := ComputeStatistics(trades, nil, 100000, 100600)
	if stats.TotalTrades != 4 || stats.WinningTrades != 2 || stats.LosingTrades != 1 {
		t.Errorf("counts: %+v", stats)
	}
	if stats.WinRate != 50 {
		t.Errorf("WinRate = %v, want 50", stats.WinRate)
	}
	if stats.TotalPnL != 600 {
		t.Errorf("TotalPnL = %v", stats.TotalPnL)
	}
	if stats.BestTrade != 500 || stats.WorstTrade != -200 {
		t.Errorf("best/worst = %v/%v", stats.BestTrade, stats.WorstTrade)
	}
	if math.Abs(stats.ProfitFactor-4.0) > 1e-9 {
		t.Errorf("ProfitFactor = %v, want 4", stats.ProfitFactor)
	}
	if math.Abs(stats.ReturnPct-0.6) > 1e-9 {
		t.Errorf("ReturnPct = %v, want 0.6", stats.ReturnPct)
	}
	if stats.AvgWin != 400 || stats.AvgLoss != -200 {
		t.Errorf("avg win/loss = %v/%v", stats.AvgWin, stats.AvgLoss)
	}

	if stats.IronCondor.TotalTrades != 2 || stats.IronCondor.AvgCredit != 2.0 {
		t.Errorf("condor stats: %+v", stats.IronCondor)
	}
	if stats.Straddle.TotalTrades != 2 || stats.Straddle.TotalPnL != 300 {
		t.Errorf("straddle stats: %+v", stats.Straddle)
	}
}

func TestProfitFactorNoLosses(t *testing.T) {
	trades := []*models.Trade{pnlTrade(models.TradeIronCondor, 100)}
	stats := ComputeStatistics(trades, nil, 100000, 100100)
	if !math.IsInf(stats.ProfitFactor, 1) {
		t.Errorf("ProfitFactor = %v, want +Inf", stats.ProfitFactor)
	}
}

func TestMaxDrawdown(t *testing.T) {
	day := func(i int) time.Time {
		return time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
	}
	curve := []models.EquityPoint{
		{Date: day(0), Equity: 100000},
		{Date: day(1), Equity: 110000},
		{Date: day(2), Equity: 99000}, // 10% off the 110000 peak
		{Date: day(3), Equity: 120000},
		{Date: day(4), Equity: 114000}, // 5% off the 120000 peak
	}
	if got := maxDrawdown(curve); math.Abs(got-10) > 1e-9 {
		t.Errorf("maxDrawdown = %v, want 10", got)
	}

	if got := maxDrawdown(nil); got != 0 {
		t.Errorf("maxDrawdown(nil) = %v", got)
	}
}

func TestSharpeRatio(t *testing.T) {
	day := func(i int) time.Time {
		return time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
	}

	// Constant equity has zero variance.
	flat := []models.EquityPoint{
		{Date: day(0), Equity: 100000},
		{Date: day(1), Equity: 100000},
		{Date: day(2), Equity: 100000},
	}
	if got := sharpeRatio(flat); got != 0 {
		t.Errorf("flat sharpe = %v, want 0", got)
	}

	rising := []models.EquityPoint{
		{Date: day(0), Equity: 100000},
		{Date: day(1), Equity: 101000},
		{Date: day(2), Equity: 101500},
	}
	if got := sharpeRatio(rising); got <= 0 {
		t.Errorf("rising sharpe = %v, want positive", got)
	}
}
