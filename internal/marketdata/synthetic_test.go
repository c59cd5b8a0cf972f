package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spx-backtester/internal/models"
	"spx-backtester/pkg/utils"
)

func TestSyntheticDeterminism(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	src := NewSynthetic(1.5)

	a, err := src.UnderlyingBars(ctx, date, models.Granularity5Min)
	require.NoError(t, err)
	b, err := src.UnderlyingBars(ctx, date, models.Granularity5Min)
	require.NoError(t, err)
	assert.Equal(t, a, b, "same date must produce identical bars")

	other, err := src.UnderlyingBars(ctx, date.AddDate(0, 0, 1), models.Granularity5Min)
	require.NoError(t, err)
	assert.NotEqual(t, a, other, "different dates must differ")
}

func TestSyntheticSessionBounds(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	src := NewSynthetic(1.5)

	bars, err := src.UnderlyingBars(ctx, date, models.Granularity5Min)
	require.NoError(t, err)
	require.NotEmpty(t, bars)

	// 09:30 through 16:00 at 5 minutes is 79 bars.
	assert.Len(t, bars, 79)
	assert.True(t, bars[0].Timestamp.Equal(utils.MarketOpen(date)))
	assert.True(t, bars[len(bars)-1].Timestamp.Equal(utils.MarketClose(date)))

	for _, bar := range bars {
		assert.GreaterOrEqual(t, bar.High, bar.Open)
		assert.GreaterOrEqual(t, bar.High, bar.Close)
		assert.LessOrEqual(t, bar.Low, bar.Open)
		assert.LessOrEqual(t, bar.Low, bar.Close)
	}

	vols, err := src.LiquidityVolumeBars(ctx, date, models.Granularity5Min)
	require.NoError(t, err)
	assert.Len(t, vols, 79)
	assert.Greater(t, vols[0].Volume, vols[1].Volume, "opening volume spike")
}

func TestSyntheticOptionChain(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	src := NewSynthetic(1.5)

	rows, err := src.OptionChain(ctx, date, date, "I:SPX", models.Granularity5Min)
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	chain := models.NewOptionChain(rows)
	for _, r := range rows {
		assert.Equal(t, 0, r.Strike%5, "strikes snap to 5 points")
		assert.GreaterOrEqual(t, r.Ask, r.Bid)
		assert.Greater(t, r.Ask, 0.0)
	}
	// Both sides present for every strike.
	for _, r := range rows {
		if r.Type == models.OptionCall {
			_, ok := chain.Row(r.Strike, models.OptionPut)
			assert.True(t, ok, "missing put at %d", r.Strike)
		}
	}
}

func TestSyntheticOptionQuotes(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	ts := time.Date(2024, 3, 4, 10, 30, 0, 0, time.UTC)
	src := NewSynthetic(1.5)

	call := FormatContract(date, models.OptionCall, 4500)
	put := FormatContract(date, models.OptionPut, 4500)

	quotes, err := src.OptionQuotes(ctx, []string{call, put, "BOGUS"}, ts)
	require.NoError(t, err)
	require.Len(t, quotes, 3)

	assert.Greater(t, quotes[call].Ask, quotes[call].Bid)
	assert.Greater(t, quotes[put].Bid, 0.0)

	// Malformed contracts degrade to a zero-valued quote.
	assert.Equal(t, models.Quote{}, quotes["BOGUS"])
}

func TestResampleBars(t *testing.T) {
	base := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)
	var minute []models.Bar
	for i := 0; i < 10; i++ {
		minute = append(minute, models.Bar{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Open:      100 + float64(i),
			High:      110 + float64(i),
			Low:       90 + float64(i),
			Close:     101 + float64(i),
			Volume:    10,
		})
	}

	five := ResampleBars(minute, 5*time.Minute)
	require.Len(t, five, 2)

	first := five[0]
	assert.True(t, first.Timestamp.Equal(base))
	assert.Equal(t, 100.0, first.Open, "open of the first minute")
	assert.Equal(t, 105.0, first.Close, "close of the last minute in the bucket")
	assert.Equal(t, 114.0, first.High)
	assert.Equal(t, 90.0, first.Low)
	assert.Equal(t, int64(50), first.Volume)
}

func TestResampleVolume(t *testing.T) {
	base := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)
	var minute []models.VolumeBar
	for i := 0; i < 7; i++ {
		minute = append(minute, models.VolumeBar{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Volume:    100,
		})
	}

	five := ResampleVolume(minute, 5*time.Minute)
	require.Len(t, five, 2)
	assert.Equal(t, int64(500), five[0].Volume)
	assert.Equal(t, int64(200), five[1].Volume)
}
