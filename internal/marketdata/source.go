// Package marketdata provides market data source implementations for the
// backtester: a deterministic synthetic generator and a Polygon-style REST
// client. The engine is polymorphic over the Source interface.
package marketdata

import (
	"context"
	"time"

	"spx-backtester/internal/models"
)

// Source supplies underlying price bars, liquidity-proxy volume bars,
// option-chain snapshots and point-in-time option quotes.
//
// All methods return empty result sets when no data exists for the
// request; emptiness is not an error. Quotes for contracts the source
// does not know are simply absent from the result map.
type Source interface {
	UnderlyingBars(ctx context.Context, date time.Time, granularity models.Granularity) ([]models.Bar, error)
	LiquidityVolumeBars(ctx context.Context, date time.Time, granularity models.Granularity) ([]models.VolumeBar, error)
	OptionChain(ctx context.Context, date, expiration time.Time, underlying string, granularity models.Granularity) ([]models.ChainRow, error)
	OptionQuotes(ctx context.Context, contracts []string, ts time.Time) (map[string]models.Quote, error)
}

// ResampleBars aggregates finer bars into buckets of the given interval.
// Bucket open is the first bar's open, close the last bar's close, high/low
// the extremes, volume the sum. Input must be time-ordered.
func ResampleBars(bars []models.Bar, interval time.Duration) []models.Bar {
	if len(bars) == 0 {
		return nil
	}

	var out []models.Bar
	var cur models.Bar
	var bucket time.Time

	for _, b := range bars {
		bb := b.Timestamp.Truncate(interval)
		if bucket.IsZero() || !bb.Equal(bucket) {
			if !bucket.IsZero() {
				out = append(out, cur)
			}
			bucket = bb
			cur = models.Bar{
				Timestamp: bb,
				Open:      b.Open,
				High:      b.High,
				Low:       b.Low,
				Close:     b.Close,
				Volume:    b.Volume,
			}
			continue
		}
		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Volume += b.Volume
	}
	out = append(out, cur)
	return out
}

// ResampleVolume aggregates finer volume bars into buckets of the interval.
func ResampleVolume(bars []models.VolumeBar, interval time.Duration) []models.VolumeBar {
	if len(bars) == 0 {
		return nil
	}

	var out []models.VolumeBar
	var cur models.VolumeBar
	var bucket time.Time

	for _, b := range bars {
		bb := b.Timestamp.Truncate(interval)
		if bucket.IsZero() || !bb.Equal(bucket) {
			if !bucket.IsZero() {
				out = append(out, cur)
			}
			bucket = bb
			cur = models.VolumeBar{Timestamp: bb, Volume: b.Volume}
			continue
		}
		cur.Volume += b.Volume
	}
	out = append(out, cur)
	return out
}
