package engine

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"spx-backtester/internal/config"
	"spx-backtester/internal/marketdata"
	"spx-backtester/internal/models"
)

// strikeTriggerTolerance is how close (in index points) the underlying must
// sit to a straddle strike before an exit check fires.
const strikeTriggerTolerance = 0.01

// PositionManager watches open straddles during the day and takes partial
// profits when the underlying touches the strike and a leg has appreciated
// past its exit multiplier.
type PositionManager struct {
	source marketdata.Source
	cfg    config.BacktestConfig
	logger zerolog.Logger
}

// NewPositionManager creates a manager over the given data source.
func NewPositionManager(source marketdata.Source, cfg config.BacktestConfig, logger zerolog.Logger) *PositionManager {
	return &PositionManager{source: source, cfg: cfg, logger: logger}
}

// CheckExits evaluates every open straddle against the current underlying
// price. It runs before signal evaluation on each bar so exits are never
// starved by entries.
func (m *PositionManager) CheckExits(ctx context.Context, open []*models.Trade, price float64, now time.Time) {
	for _, trade := range open {
		if !trade.IsOpen() || trade.Straddle == nil {
			continue
		}
		if math.Abs(price-float64(trade.Straddle.Strike)) > strikeTriggerTolerance {
			continue
		}
		m.checkStraddle(ctx, trade, price, now)
	}
}

func (m *PositionManager) checkStraddle(ctx context.Context, trade *models.Trade, price float64, now time.Time) {
	strike := float64(trade.Straddle.Strike)

	for contract, leg := range trade.Legs {
		if leg.RemainingPosition <= 0 {
			continue
		}
		// Calls are worth exiting when the underlying is at or above the
		// strike, puts at or below.
		if leg.Role.IsCall() {
			if price < strike {
				continue
			}
		} else {
			if price > strike {
				continue
			}
		}

		quotes, err := m.source.OptionQuotes(ctx, []string{contract}, now)
		if err != nil {
			m.logger.Warn().Err(err).Str("contract", contract).Msg("exit quote fetch failed")
			continue
		}
		q, ok := quotes[contract]
		if !ok {
			m.logger.Warn().Str("contract", contract).Msg("exit quote missing")
			continue
		}

		exitPrice := q.Mid()
		if m.cfg.UseBidAsk {
			exitPrice = q.Bid
		}
		if exitPrice < leg.EntryPrice*trade.Straddle.ExitMultiplier {
			continue
		}

		exitSize := int(float64(leg.Position) * trade.Straddle.ExitPercentage)
		if exitSize <= 0 {
			continue
		}
		if exitSize > leg.RemainingPosition {
			exitSize = leg.RemainingPosition
		}

		pnl := (exitPrice-leg.EntryPrice)*float64(exitSize)*models.ContractMultiplier -
			m.cfg.CommissionPerContract*float64(exitSize)

		leg.RemainingPosition -= exitSize
		leg.PartialExits = append(leg.PartialExits, models.PartialExit{
			Time:  now,
			Size:  exitSize,
			Price: exitPrice,
			PnL:   pnl,
		})
		trade.Straddle.PartialPnL += pnl

		m.logger.Info().
			Str("trade", trade.ID).
			Str("contract", contract).
			Int("size", exitSize).
			Float64("price", exitPrice).
			Float64("pnl", pnl).
			Int("remaining", leg.RemainingPosition).
			Msg("straddle partial exit")
	}
}
