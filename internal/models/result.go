package models

import "time"

// EquityPoint is one point on the cumulative capital curve.
type EquityPoint struct {
	Date   time.Time
	Equity float64
}

// TypeStats holds the per-strategy breakdown of performance.
type TypeStats struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	TotalPnL      float64
	AvgPnL        float64

	// Iron Condor only.
	AvgCredit float64

	// Straddle only.
	PartialExits   int
	PartialExitPnL float64
}

// Statistics is the summary performance bundle for a full run.
type Statistics struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	TotalPnL      float64
	AvgWin        float64
	AvgLoss       float64
	AvgTradePnL   float64
	ProfitFactor  float64 // +Inf when there are wins and no losses
	MaxDrawdown   float64 // peak-to-trough decline, percent
	SharpeRatio   float64
	ReturnPct     float64
	BestTrade     float64
	WorstTrade    float64

	IronCondor TypeStats
	Straddle   TypeStats
}

// BacktestResult is the full output of a backtest run.
type BacktestResult struct {
	Trades      []*Trade
	DailyPnL    map[time.Time]float64
	EquityCurve []EquityPoint
	Statistics  Statistics
}
