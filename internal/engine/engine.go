package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"spx-backtester/internal/config"
	"spx-backtester/internal/marketdata"
	"spx-backtester/internal/models"
	"spx-backtester/pkg/utils"
)

// underlyingSymbol is the index whose option chain the strategy trades.
const underlyingSymbol = "I:SPX"

// Engine drives the day-by-day backtest: fetch data, evaluate signals,
// open at most one iron condor per session, hedge it with a straddle,
// manage partial exits and settle everything at the close.
type Engine struct {
	source marketdata.Source
	cfg    config.BacktestConfig
	params config.StrategyParams
	logger zerolog.Logger

	evaluatorMin int
	selector     *StrikeSelector
	executor     *TradeExecutor
	positions    *PositionManager
	settler      *SettlementEngine
}

// New wires an engine from its configuration and data source.
func New(source marketdata.Source, cfg config.BacktestConfig, params config.StrategyParams, logger zerolog.Logger) *Engine {
	return &Engine{
		source:    source,
		cfg:       cfg,
		params:    params,
		logger:    logger,
		selector:  NewStrikeSelector(params),
		executor:  NewTradeExecutor(source, cfg, params, logger),
		positions: NewPositionManager(source, cfg, logger),
		settler:   NewSettlementEngine(cfg, logger),
	}
}

// Run walks every trading day from start to end inclusive. Weekends and
// holidays are skipped without a ledger entry; days where data cannot be
// fetched are logged and skipped the same way. Every processed day adds a
// daily P&L entry and an equity point, trades or not.
func (e *Engine) Run(ctx context.Context) (*models.BacktestResult, error) {
	result := &models.BacktestResult{
		DailyPnL: make(map[time.Time]float64),
	}
	capital := e.cfg.InitialCapital
	result.EquityCurve = append(result.EquityCurve, models.EquityPoint{
		Date:   e.cfg.StartDate,
		Equity: capital,
	})

	for date := e.cfg.StartDate; !date.After(e.cfg.EndDate); date = date.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !utils.IsTradingDay(date) {
			continue
		}

		dayTrades, ok := e.runDay(ctx, date)
		if !ok {
			continue
		}

		var dayPnL float64
		for _, t := range dayTrades {
			dayPnL += t.PnL
		}
		capital += dayPnL
		result.DailyPnL[date] = dayPnL
		result.EquityCurve = append(result.EquityCurve, models.EquityPoint{Date: date, Equity: capital})
		result.Trades = append(result.Trades, dayTrades...)

		e.logger.Debug().
			Time("date", date).
			Int("trades", len(dayTrades)).
			Float64("day_pnl", dayPnL).
			Float64("equity", capital).
			Msg("day complete")
	}

	result.Statistics = ComputeStatistics(result.Trades, result.EquityCurve, e.cfg.InitialCapital, capital)
	e.logger.Info().
		Int("trades", result.Statistics.TotalTrades).
		Float64("total_pnl", result.Statistics.TotalPnL).
		Float64("final_equity", capital).
		Msg("backtest complete")
	return result, nil
}

// runDay processes one session. The second return is false only when the
// day's data could not be fetched, which excludes the day from the ledger.
func (e *Engine) runDay(ctx context.Context, date time.Time) ([]*models.Trade, bool) {
	granularity := models.Granularity(e.cfg.DataGranularity)

	bars, err := e.source.UnderlyingBars(ctx, date, granularity)
	if err != nil {
		e.logger.Warn().Err(err).Time("date", date).Msg("underlying data unavailable, skipping day")
		return nil, false
	}
	liquidity, err := e.source.LiquidityVolumeBars(ctx, date, granularity)
	if err != nil {
		e.logger.Warn().Err(err).Time("date", date).Msg("liquidity data unavailable, skipping day")
		return nil, false
	}

	// Signals always run on 5-minute bars regardless of fetch granularity.
	if granularity == models.GranularityMinute {
		bars = marketdata.ResampleBars(bars, 5*time.Minute)
		liquidity = marketdata.ResampleVolume(liquidity, 5*time.Minute)
	}

	if len(bars) == 0 || len(liquidity) == 0 {
		e.logger.Debug().Time("date", date).Msg("empty session")
		return nil, true
	}

	evaluator := NewSignalEvaluator(bars, liquidity, e.params)
	minBars := evaluator.MinBars()
	if len(bars) <= minBars {
		e.logger.Debug().Time("date", date).Int("bars", len(bars)).Msg("not enough history")
		return nil, true
	}

	var trades []*models.Trade
	var openStraddles []*models.Trade
	condorOpened := false

	for i := minBars; i < len(bars); i++ {
		bar := bars[i]
		if !utils.WithinRegularHours(bar.Timestamp) {
			continue
		}
		price := bar.Open

		// Exits first so a touch on the entry bar is never missed.
		e.positions.CheckExits(ctx, openStraddles, price, bar.Timestamp)

		if condorOpened {
			continue
		}
		sig := evaluator.Evaluate(i)
		if !sig.Entry {
			continue
		}

		rows, err := e.source.OptionChain(ctx, date, date, underlyingSymbol, granularity)
		if err != nil {
			e.logger.Warn().Err(err).Time("ts", bar.Timestamp).Msg("option chain unavailable")
			continue
		}
		combo, ok := e.selector.Select(price, models.NewOptionChain(rows))
		if !ok {
			e.logger.Debug().Time("ts", bar.Timestamp).Float64("price", price).Msg("no viable strike combination")
			continue
		}

		condor := e.executor.ExecuteIronCondor(ctx, date, bar.Timestamp, combo, sig, price)
		if condor == nil {
			continue
		}
		trades = append(trades, condor)
		condorOpened = true

		if condor.IronCondor.NetCredit > 0 {
			straddle := e.executor.ExecuteStraddle(ctx, date, bar.Timestamp, price, condor, sig)
			if straddle != nil {
				trades = append(trades, straddle)
				openStraddles = append(openStraddles, straddle)
			}
		}
	}

	// Close in the bars' own location so NY-stamped entries after 11:00
	// never end up with an exit time before their entry.
	settlement := bars[len(bars)-1].Close
	closeTime := utils.MarketClose(bars[len(bars)-1].Timestamp)
	for _, t := range trades {
		if t.IsOpen() {
			e.settler.Close(t, settlement, closeTime)
		}
	}
	return trades, true
}
