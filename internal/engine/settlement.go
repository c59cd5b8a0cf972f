package engine

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"spx-backtester/internal/config"
	"spx-backtester/internal/marketdata"
	"spx-backtester/internal/models"
)

// SettlementEngine closes trades still open at the end of the session at
// intrinsic value against the underlying's final close.
type SettlementEngine struct {
	cfg    config.BacktestConfig
	logger zerolog.Logger
}

// NewSettlementEngine returns a settlement engine with the given costs.
func NewSettlementEngine(cfg config.BacktestConfig, logger zerolog.Logger) *SettlementEngine {
	return &SettlementEngine{cfg: cfg, logger: logger}
}

// Close settles the trade at the settlement price and marks it closed.
func (s *SettlementEngine) Close(trade *models.Trade, settlement float64, closeTime time.Time) {
	var gross, net float64
	switch trade.Type {
	case models.TradeStraddle:
		gross, net = s.settleStraddle(trade, settlement)
	default:
		gross, net = s.settleIronCondor(trade, settlement)
	}

	trade.PnLGross = gross
	trade.PnL = net
	trade.ExitTime = closeTime
	trade.Status = models.TradeClosed
	trade.ExitSignal = &models.ExitSnapshot{SettlementPrice: settlement}

	s.logger.Info().
		Str("trade", trade.ID).
		Float64("settlement", settlement).
		Float64("pnl", net).
		Msg("trade settled")
}

// legStrike resolves a leg's strike, falling back to the contract
// identifier when the leg does not carry one. A malformed identifier
// degrades to a zero strike rather than aborting settlement.
func (s *SettlementEngine) legStrike(contract string, leg *models.Leg) float64 {
	if leg.Strike > 0 {
		return float64(leg.Strike)
	}
	c, err := marketdata.ParseContract(contract)
	if err != nil {
		s.logger.Warn().Err(err).Str("contract", contract).Msg("unparseable contract at settlement")
		return 0
	}
	return float64(c.Strike)
}

// intrinsicValue is the option's exercise value at settlement.
func intrinsicValue(isCall bool, settlement, strike float64) float64 {
	if isCall {
		return math.Max(0, settlement-strike)
	}
	return math.Max(0, strike-settlement)
}

// settleIronCondor values each leg at intrinsic and charges a round-trip
// commission on every contract.
func (s *SettlementEngine) settleIronCondor(trade *models.Trade, settlement float64) (gross, net float64) {
	var commission float64
	for contract, leg := range trade.Legs {
		strike := s.legStrike(contract, leg)
		intrinsic := intrinsicValue(leg.Role.IsCall(), settlement, strike)
		leg.ExitPrice = intrinsic

		gross += (intrinsic - leg.EntryPrice) * float64(leg.Position) * models.ContractMultiplier
		commission += s.cfg.CommissionPerContract * math.Abs(float64(leg.Position)) * 2
	}
	return gross, gross - commission
}

// settleStraddle folds the intraday partial exits together with the
// intrinsic settlement of whatever remains. Exit commissions were already
// taken at each partial fill; the entry commission for the full original
// size is charged here, once.
func (s *SettlementEngine) settleStraddle(trade *models.Trade, settlement float64) (gross, net float64) {
	net = trade.Straddle.PartialPnL
	for _, leg := range trade.Legs {
		for _, pe := range leg.PartialExits {
			gross += (pe.Price - leg.EntryPrice) * float64(pe.Size) * models.ContractMultiplier
		}
	}

	var entrySize float64
	for contract, leg := range trade.Legs {
		entrySize += math.Abs(float64(leg.Position))
		if leg.RemainingPosition <= 0 {
			continue
		}

		strike := s.legStrike(contract, leg)
		intrinsic := intrinsicValue(leg.Role.IsCall(), settlement, strike)
		leg.ExitPrice = intrinsic

		legGross := (intrinsic - leg.EntryPrice) * float64(leg.RemainingPosition) * models.ContractMultiplier
		gross += legGross
		net += legGross - s.cfg.CommissionPerContract*float64(leg.RemainingPosition)
	}

	net -= s.cfg.CommissionPerContract * entrySize
	return gross, net
}
