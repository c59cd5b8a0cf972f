package marketdata

import (
	"context"
	"math"
	"math/rand"
	"time"

	"spx-backtester/internal/models"
	"spx-backtester/pkg/utils"
)

// Synthetic generates deterministic per-day market data: an SPX price walk,
// SPY volume bars and option quotes derived from the walk. The same date
// always produces the same data, which keeps backtests reproducible.
type Synthetic struct {
	Spread    float64 // option bid/ask spread in dollars
	BasePrice float64
}

// NewSynthetic creates a synthetic source with the given option spread.
func NewSynthetic(spread float64) *Synthetic {
	if spread <= 0 {
		spread = 1.5
	}
	return &Synthetic{Spread: spread, BasePrice: 4500}
}

func daySeed(date time.Time, salt int64) int64 {
	y, m, d := date.Date()
	return int64(y)*10000 + int64(m)*100 + int64(d) + salt*1e9
}

func granularityInterval(g models.Granularity) time.Duration {
	if g == models.Granularity5Min {
		return 5 * time.Minute
	}
	return time.Minute
}

// UnderlyingBars generates the day's SPX OHLCV walk from 09:30 through 16:00.
func (s *Synthetic) UnderlyingBars(_ context.Context, date time.Time, granularity models.Granularity) ([]models.Bar, error) {
	interval := granularityInterval(granularity)
	rng := rand.New(rand.NewSource(daySeed(date, 0)))

	open := utils.MarketOpen(date)
	close := utils.MarketClose(date)

	var bars []models.Bar
	walk := 0.0
	for ts := open; !ts.After(close); ts = ts.Add(interval) {
		frac := float64(ts.Sub(open)) / float64(close.Sub(open))
		base := s.BasePrice + 40*math.Sin(frac*2*math.Pi)
		walk += rng.NormFloat64() * 1.5
		price := base + walk

		o := price + rng.NormFloat64()*0.5
		c := price + rng.NormFloat64()*0.5
		h := math.Max(o, c) + math.Abs(rng.NormFloat64())*2
		l := math.Min(o, c) - math.Abs(rng.NormFloat64())*2

		vol := int64(1800 + rng.Intn(400))
		bars = append(bars, models.Bar{
			Timestamp: ts,
			Open:      o,
			High:      h,
			Low:       l,
			Close:     c,
			Volume:    vol,
		})
	}

	// Heavier volume around the open and the close.
	if len(bars) > 0 {
		bars[0].Volume *= 4
		bars[len(bars)-1].Volume *= 3
	}
	return bars, nil
}

// LiquidityVolumeBars generates the day's SPY volume-only series.
func (s *Synthetic) LiquidityVolumeBars(_ context.Context, date time.Time, granularity models.Granularity) ([]models.VolumeBar, error) {
	interval := granularityInterval(granularity)
	rng := rand.New(rand.NewSource(daySeed(date, 1)))

	open := utils.MarketOpen(date)
	close := utils.MarketClose(date)

	var bars []models.VolumeBar
	for ts := open; !ts.After(close); ts = ts.Add(interval) {
		bars = append(bars, models.VolumeBar{
			Timestamp: ts,
			Volume:    int64(150000 + rng.Intn(40000)),
		})
	}
	if len(bars) > 0 {
		bars[0].Volume *= 2
		bars[len(bars)-1].Volume = bars[len(bars)-1].Volume * 3 / 2
	}
	return bars, nil
}

// OptionChain generates a chain of strikes around the day's opening price.
func (s *Synthetic) OptionChain(ctx context.Context, date, expiration time.Time, _ string, granularity models.Granularity) ([]models.ChainRow, error) {
	bars, err := s.UnderlyingBars(ctx, date, granularity)
	if err != nil || len(bars) == 0 {
		return nil, err
	}
	spot := bars[0].Open

	minStrike := int(spot*0.92/5) * 5
	maxStrike := int(spot*1.08/5) * 5

	rng := rand.New(rand.NewSource(daySeed(date, 2)))
	var rows []models.ChainRow
	for strike := minStrike; strike <= maxStrike; strike += 5 {
		for _, typ := range []models.OptionType{models.OptionCall, models.OptionPut} {
			value := s.optionValue(spot, strike, typ, rng)
			rows = append(rows, models.ChainRow{
				Contract:     FormatContract(expiration, typ, strike),
				Strike:       strike,
				Type:         typ,
				Bid:          math.Max(0.05, value-s.Spread/2),
				Ask:          value + s.Spread/2,
				Last:         value,
				Volume:       int64(rng.Intn(60)),
				OpenInterest: int64(rng.Intn(5000)),
				IV:           0.17 + rng.Float64()*0.05,
			})
		}
	}
	return rows, nil
}

// OptionQuotes generates point-in-time quotes for the requested contracts.
// A malformed contract identifier yields a zero-valued quote rather than
// failing the batch.
func (s *Synthetic) OptionQuotes(ctx context.Context, contracts []string, ts time.Time) (map[string]models.Quote, error) {
	spot, ok := s.spotAt(ctx, ts)
	if !ok {
		return map[string]models.Quote{}, nil
	}

	rng := rand.New(rand.NewSource(daySeed(ts, 3) + int64(ts.Hour()*60+ts.Minute())))
	quotes := make(map[string]models.Quote, len(contracts))
	for _, id := range contracts {
		c, err := ParseContract(id)
		if err != nil {
			quotes[id] = models.Quote{}
			continue
		}
		value := s.optionValue(spot, c.Strike, c.Type, rng)
		bid := math.Max(0.05, value-s.Spread/2)
		ask := value + s.Spread/2
		quotes[id] = models.Quote{
			Bid:    bid,
			Ask:    ask,
			Last:   bid + rng.Float64()*(ask-bid),
			IV:     0.15 + rng.Float64()*0.08,
			Volume: int64(rng.Intn(60)),
		}
	}
	return quotes, nil
}

// optionValue prices a 0DTE option as intrinsic value plus a time-value hump
// that peaks at the money. Not a real pricing model, just enough shape for
// credit and exit arithmetic to behave.
func (s *Synthetic) optionValue(spot float64, strike int, typ models.OptionType, rng *rand.Rand) float64 {
	var intrinsic float64
	if typ == models.OptionCall {
		intrinsic = math.Max(0, spot-float64(strike))
	} else {
		intrinsic = math.Max(0, float64(strike)-spot)
	}

	moneyness := spot - float64(strike)
	timeValue := 18 * math.Exp(-moneyness*moneyness/(2*30*30))
	noise := rng.NormFloat64() * 0.1

	return math.Max(0.05, intrinsic+timeValue+noise)
}

// spotAt returns the underlying open price of the bar containing ts.
func (s *Synthetic) spotAt(ctx context.Context, ts time.Time) (float64, bool) {
	bars, err := s.UnderlyingBars(ctx, ts, models.GranularityMinute)
	if err != nil || len(bars) == 0 {
		return 0, false
	}
	for i := len(bars) - 1; i >= 0; i-- {
		if !bars[i].Timestamp.After(ts) {
			return bars[i].Open, true
		}
	}
	return bars[0].Open, true
}
