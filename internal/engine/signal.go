package engine

import (
	"spx-backtester/internal/config"
	"spx-backtester/internal/models"
)

// SignalEvaluator derives entry signals from the day's 5-minute underlying
// bars and the liquidity proxy's volume series. The two series are aligned
// by index.
type SignalEvaluator struct {
	bars      []models.Bar
	liquidity []models.VolumeBar
	params    config.StrategyParams
}

// NewSignalEvaluator creates an evaluator over one day's series.
func NewSignalEvaluator(bars []models.Bar, liquidity []models.VolumeBar, params config.StrategyParams) *SignalEvaluator {
	return &SignalEvaluator{bars: bars, liquidity: liquidity, params: params}
}

// MinBars returns the history needed before the first evaluation.
func (e *SignalEvaluator) MinBars() int {
	n := e.params.ConsecutiveCandles
	if e.params.LookbackCandles > n {
		n = e.params.LookbackCandles
	}
	if e.params.AvgRangeCandles > n {
		n = e.params.AvgRangeCandles
	}
	return n
}

// Evaluate checks the three entry conditions at bar index i. Window
// elements that fall before the start of the series are skipped, not
// zero-filled. Conditions short-circuit: once one fails the remaining
// conditions keep their initial value (volume starts true, direction and
// range start false).
func (e *SignalEvaluator) Evaluate(i int) models.Signal {
	sig := models.Signal{Timestamp: e.bars[i].Timestamp}

	sig.VolumeCondition = e.volumeCondition(i)
	if !sig.VolumeCondition {
		return sig
	}

	sig.DirectionCondition = e.directionCondition(i)
	if !sig.DirectionCondition {
		return sig
	}

	sig.RangeCondition = e.rangeCondition(i)
	sig.Entry = sig.VolumeCondition && sig.DirectionCondition && sig.RangeCondition
	return sig
}

// volumeCondition holds when every liquidity bar in the trailing window
// stays at or below a multiple of the day's first bar volume. A single
// violation anywhere in the window invalidates it.
func (e *SignalEvaluator) volumeCondition(i int) bool {
	if len(e.liquidity) == 0 {
		return false
	}
	threshold := float64(e.liquidity[0].Volume) * e.params.VolumeThreshold

	for j := 0; j < e.params.ConsecutiveCandles; j++ {
		idx := i - e.params.ConsecutiveCandles + j + 1
		if idx < 0 || idx >= len(e.liquidity) {
			continue
		}
		if float64(e.liquidity[idx].Volume) > threshold {
			return false
		}
	}
	return true
}

// directionCondition holds when the trailing bars are not all classified
// the same way. Close > open counts as up, anything else as down.
func (e *SignalEvaluator) directionCondition(i int) bool {
	var dirs []bool
	for j := 0; j < e.params.LookbackCandles; j++ {
		idx := i - e.params.LookbackCandles + j + 1
		if idx < 0 || idx >= len(e.bars) {
			continue
		}
		dirs = append(dirs, e.bars[idx].Close > e.bars[idx].Open)
	}
	if len(dirs) == 0 {
		return false
	}

	for _, d := range dirs[1:] {
		if d != dirs[0] {
			return true
		}
	}
	return false
}

// rangeCondition holds when the recent average high-low range is strictly
// below a fraction of the average range over the whole day so far.
func (e *SignalEvaluator) rangeCondition(i int) bool {
	var recentSum float64
	recentN := 0
	for j := 0; j < e.params.AvgRangeCandles; j++ {
		idx := i - e.params.AvgRangeCandles + j + 1
		if idx < 0 || idx >= len(e.bars) {
			continue
		}
		recentSum += e.bars[idx].High - e.bars[idx].Low
		recentN++
	}
	if recentN == 0 {
		return false
	}

	var daySum float64
	for j := 0; j <= i; j++ {
		daySum += e.bars[j].High - e.bars[j].Low
	}

	avgRecent := recentSum / float64(recentN)
	avgDay := daySum / float64(i+1)
	return avgRecent < avgDay*e.params.RangeThreshold
}
