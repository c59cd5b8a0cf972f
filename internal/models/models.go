// Package models provides domain models for the backtester.
package models

import "time"

// Granularity identifies the bar interval of a data request.
type Granularity string

const (
	GranularityMinute Granularity = "minute"
	Granularity5Min   Granularity = "5min"
)

// TradeType identifies the strategy that produced a trade.
type TradeType string

const (
	TradeIronCondor TradeType = "IronCondor"
	TradeStraddle   TradeType = "Straddle"
)

// TradeStatus represents the lifecycle state of a trade.
type TradeStatus string

const (
	TradeOpen   TradeStatus = "OPEN"
	TradeClosed TradeStatus = "CLOSED"
)

// ContractMultiplier is the index option contract multiplier.
const ContractMultiplier = 100.0

// Bar represents OHLCV data for a time period.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// VolumeBar is a volume-only bar from the liquidity proxy instrument.
type VolumeBar struct {
	Timestamp time.Time
	Volume    int64
}

// Signal is the entry-signal snapshot produced for a single bar.
type Signal struct {
	Timestamp          time.Time
	VolumeCondition    bool
	DirectionCondition bool
	RangeCondition     bool
	Entry              bool
}

// ExitSnapshot records the conditions under which a trade was closed.
type ExitSnapshot struct {
	SettlementPrice float64
}
