package models

import (
	"fmt"
	"time"
)

// LegRole labels the role a contract plays within a trade.
type LegRole string

const (
	RoleShortCall    LegRole = "short_call"
	RoleShortPut     LegRole = "short_put"
	RoleLongCall     LegRole = "long_call"
	RoleLongPut      LegRole = "long_put"
	RoleStraddleCall LegRole = "straddle_call"
	RoleStraddlePut  LegRole = "straddle_put"
)

// IsCall reports whether the role represents a call contract.
func (r LegRole) IsCall() bool {
	return r == RoleShortCall || r == RoleLongCall || r == RoleStraddleCall
}

// PartialExit records a single partial fill taken against a straddle leg.
type PartialExit struct {
	Time  time.Time
	Size  int
	Price float64
	PnL   float64
}

// Leg holds the per-contract detail of a trade.
// Position is signed: positive = long, negative = short.
type Leg struct {
	Position   int
	EntryPrice float64
	ExitPrice  float64
	Role       LegRole

	Strike int

	// Straddle legs only: intraday partial-exit tracking.
	RemainingPosition int
	PartialExits      []PartialExit
}

// IronCondorMeta carries the Iron Condor specific trade fields.
type IronCondorMeta struct {
	NetCredit       float64
	WingWidth       int
	UnderlyingPrice float64
}

// StraddleMeta carries the Straddle specific trade fields.
type StraddleMeta struct {
	Strike          int
	TotalPremium    float64
	ExitPercentage  float64
	ExitMultiplier  float64
	PartialPnL      float64
	UnderlyingPrice float64

	// IronCondorID identifies the triggering Iron Condor trade.
	// Provenance only; the straddle code path never mutates the condor.
	IronCondorID string
}

// Trade represents a single options position.
type Trade struct {
	ID          string
	EntryTime   time.Time
	ExitTime    time.Time
	Type        TradeType
	Legs        map[string]*Leg // contract identifier -> leg detail
	Size        int
	EntrySignal Signal
	ExitSignal  *ExitSnapshot
	PnL         float64
	PnLGross    float64 // before commission
	Status      TradeStatus

	IronCondor *IronCondorMeta
	Straddle   *StraddleMeta
}

// IsOpen reports whether the trade has not yet been closed.
func (t *Trade) IsOpen() bool {
	return t.Status == TradeOpen
}

// HasRemaining reports whether any leg still carries un-exited size.
func (t *Trade) HasRemaining() bool {
	for _, leg := range t.Legs {
		if leg.RemainingPosition > 0 {
			return true
		}
	}
	return false
}

// Describe returns a compact strike-level description of the trade,
// suitable for logs and report tables.
func (t *Trade) Describe() string {
	strikeFor := func(role LegRole) int {
		for _, leg := range t.Legs {
			if leg.Role == role {
				return leg.Strike
			}
		}
		return 0
	}
	switch t.Type {
	case TradeIronCondor:
		return fmt.Sprintf("%dP/%dP/%dC/%dC condor",
			strikeFor(RoleLongPut), strikeFor(RoleShortPut),
			strikeFor(RoleShortCall), strikeFor(RoleLongCall))
	case TradeStraddle:
		if t.Straddle != nil {
			return fmt.Sprintf("%d P/C straddle", t.Straddle.Strike)
		}
	}
	return string(t.Type)
}

// PartialExitCount returns the number of partial fills across all legs.
func (t *Trade) PartialExitCount() int {
	n := 0
	for _, leg := range t.Legs {
		n += len(leg.PartialExits)
	}
	return n
}
