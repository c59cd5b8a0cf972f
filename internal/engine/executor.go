package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"spx-backtester/internal/config"
	"spx-backtester/internal/marketdata"
	"spx-backtester/internal/models"
)

// TradeExecutor turns a strike selection into filled trades, pricing each
// leg from live quotes at the entry bar.
type TradeExecutor struct {
	source marketdata.Source
	cfg    config.BacktestConfig
	params config.StrategyParams
	logger zerolog.Logger
}

// NewTradeExecutor creates an executor over the given data source.
func NewTradeExecutor(source marketdata.Source, cfg config.BacktestConfig, params config.StrategyParams, logger zerolog.Logger) *TradeExecutor {
	return &TradeExecutor{source: source, cfg: cfg, params: params, logger: logger}
}

// ExecuteIronCondor opens a four-leg condor at the combo's strikes. Shorts
// fill at the bid and longs at the ask when bid/ask pricing is enabled,
// otherwise everything fills at the mid. Returns nil when any leg's quote
// is unavailable.
func (x *TradeExecutor) ExecuteIronCondor(ctx context.Context, date, entryTime time.Time, combo models.StrikeCombo, sig models.Signal, price float64) *models.Trade {
	legs := []struct {
		role   models.LegRole
		typ    models.OptionType
		strike int
	}{
		{models.RoleShortCall, models.OptionCall, combo.ShortCall},
		{models.RoleShortPut, models.OptionPut, combo.ShortPut},
		{models.RoleLongCall, models.OptionCall, combo.LongCall},
		{models.RoleLongPut, models.OptionPut, combo.LongPut},
	}

	contracts := make([]string, len(legs))
	for i, l := range legs {
		contracts[i] = marketdata.FormatContract(date, l.typ, l.strike)
	}

	quotes, err := x.source.OptionQuotes(ctx, contracts, entryTime)
	if err != nil {
		x.logger.Warn().Err(err).Time("entry", entryTime).Msg("iron condor quotes unavailable")
		return nil
	}

	tradeLegs := make(map[string]*models.Leg, len(legs))
	var shortCredit, longDebit float64
	for i, l := range legs {
		q, ok := quotes[contracts[i]]
		if !ok {
			x.logger.Warn().Str("contract", contracts[i]).Msg("missing quote, skipping iron condor")
			return nil
		}

		isShort := l.role == models.RoleShortCall || l.role == models.RoleShortPut
		var entryPrice float64
		if x.cfg.UseBidAsk {
			if isShort {
				entryPrice = q.Bid
			} else {
				entryPrice = q.Ask
			}
		} else {
			entryPrice = q.Mid()
		}

		position := x.params.TradeSize
		if isShort {
			position = -position
			shortCredit += entryPrice
		} else {
			longDebit += entryPrice
		}

		tradeLegs[contracts[i]] = &models.Leg{
			Position:   position,
			EntryPrice: entryPrice,
			Role:       l.role,
			Strike:     l.strike,
		}
	}

	netCredit := shortCredit - longDebit
	trade := &models.Trade{
		ID:          fmt.Sprintf("IC-%s", entryTime.Format("20060102-150405")),
		EntryTime:   entryTime,
		Type:        models.TradeIronCondor,
		Legs:        tradeLegs,
		Size:        x.params.TradeSize,
		EntrySignal: sig,
		Status:      models.TradeOpen,
		IronCondor: &models.IronCondorMeta{
			NetCredit:       netCredit,
			WingWidth:       combo.WingWidth,
			UnderlyingPrice: price,
		},
	}

	x.logger.Info().
		Str("trade", trade.ID).
		Int("short_call", combo.ShortCall).
		Int("long_call", combo.LongCall).
		Int("long_put", combo.LongPut).
		Float64("net_credit", netCredit).
		Msg("iron condor opened")
	return trade
}

// ExecuteStraddle opens a long call and long put at a single strike placed
// a credit-scaled distance above the spot. Both legs fill at the ask (or
// mid). Returns nil when either quote is unavailable.
func (x *TradeExecutor) ExecuteStraddle(ctx context.Context, date, entryTime time.Time, price float64, ic *models.Trade, sig models.Signal) *models.Trade {
	distance := ic.IronCondor.NetCredit * x.params.StraddleDistanceMultiplier
	strike := roundToStrike(price + distance)

	callID := marketdata.FormatContract(date, models.OptionCall, strike)
	putID := marketdata.FormatContract(date, models.OptionPut, strike)

	quotes, err := x.source.OptionQuotes(ctx, []string{callID, putID}, entryTime)
	if err != nil {
		x.logger.Warn().Err(err).Time("entry", entryTime).Msg("straddle quotes unavailable")
		return nil
	}

	legPrice := func(id string) (float64, bool) {
		q, ok := quotes[id]
		if !ok {
			return 0, false
		}
		if x.cfg.UseBidAsk {
			return q.Ask, true
		}
		return q.Mid(), true
	}

	callPrice, ok := legPrice(callID)
	if !ok {
		x.logger.Warn().Str("contract", callID).Msg("missing quote, skipping straddle")
		return nil
	}
	putPrice, ok := legPrice(putID)
	if !ok {
		x.logger.Warn().Str("contract", putID).Msg("missing quote, skipping straddle")
		return nil
	}

	size := x.params.TradeSize
	trade := &models.Trade{
		ID:        fmt.Sprintf("ST-%s", entryTime.Format("20060102-150405")),
		EntryTime: entryTime,
		Type:      models.TradeStraddle,
		Legs: map[string]*models.Leg{
			callID: {
				Position:          size,
				EntryPrice:        callPrice,
				Role:              models.RoleStraddleCall,
				Strike:            strike,
				RemainingPosition: size,
			},
			putID: {
				Position:          size,
				EntryPrice:        putPrice,
				Role:              models.RoleStraddlePut,
				Strike:            strike,
				RemainingPosition: size,
			},
		},
		Size:        size,
		EntrySignal: sig,
		Status:      models.TradeOpen,
		Straddle: &models.StraddleMeta{
			Strike:          strike,
			TotalPremium:    callPrice + putPrice,
			ExitPercentage:  x.params.StraddleExitPercentage,
			ExitMultiplier:  x.params.StraddleExitMultiplier,
			UnderlyingPrice: price,
			IronCondorID:    ic.ID,
		},
	}

	x.logger.Info().
		Str("trade", trade.ID).
		Int("strike", strike).
		Float64("premium", trade.Straddle.TotalPremium).
		Str("condor", ic.ID).
		Msg("straddle opened")
	return trade
}
