package engine

import (
	"math"

	"spx-backtester/internal/config"
	"spx-backtester/internal/models"
)

// StrikeSelector picks iron condor strikes around the money by scanning
// wing widths and keeping the combination whose credit-to-max-loss ratio
// sits closest to the configured target.
type StrikeSelector struct {
	params config.StrategyParams
}

// NewStrikeSelector returns a selector for the given strategy parameters.
func NewStrikeSelector(params config.StrategyParams) *StrikeSelector {
	return &StrikeSelector{params: params}
}

// roundToStrike snaps a price to the nearest 5-point strike.
func roundToStrike(price float64) int {
	return int(math.Round(price/5.0)) * 5
}

// Select evaluates every candidate wing width against the option chain.
// Both short legs sit at the at-the-money strike. Candidates priced at a
// non-positive credit or missing any leg quote are rejected. Ties on ratio
// distance keep the narrower wing.
func (s *StrikeSelector) Select(price float64, chain *models.OptionChain) (models.StrikeCombo, bool) {
	atm := roundToStrike(price)

	var best models.StrikeCombo
	bestDiff := math.Inf(1)
	found := false

	for d := s.params.MinWingWidth; d <= s.params.MaxWingWidth; d += s.params.WingWidthStep {
		scMid, ok := s.midPrice(chain, atm, models.OptionCall)
		if !ok {
			continue
		}
		spMid, ok := s.midPrice(chain, atm, models.OptionPut)
		if !ok {
			continue
		}
		lcMid, ok := s.midPrice(chain, atm+d, models.OptionCall)
		if !ok {
			continue
		}
		lpMid, ok := s.midPrice(chain, atm-d, models.OptionPut)
		if !ok {
			continue
		}

		netCredit := (scMid + spMid) - (lcMid + lpMid)
		maxLoss := float64(d) - netCredit
		if netCredit <= 0 || maxLoss <= 0 {
			continue
		}

		ratio := netCredit / maxLoss
		diff := math.Abs(ratio - s.params.TargetWinLossRatio)
		if diff < bestDiff {
			bestDiff = diff
			best = models.StrikeCombo{
				ShortCall: atm,
				ShortPut:  atm,
				LongCall:  atm + d,
				LongPut:   atm - d,
				NetCredit: netCredit,
				MaxLoss:   maxLoss,
				Ratio:     ratio,
				WingWidth: d,
			}
			found = true
		}
	}
	return best, found
}

func (s *StrikeSelector) midPrice(chain *models.OptionChain, strike int, typ models.OptionType) (float64, bool) {
	row, ok := chain.Row(strike, typ)
	if !ok {
		return 0, false
	}
	if row.Bid == 0 && row.Ask == 0 {
		return 0, false
	}
	return (row.Bid + row.Ask) / 2, true
}
