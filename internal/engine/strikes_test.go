package engine

import (
	"math"
	"testing"

	"spx-backtester/internal/models"
)

func chainFrom(rows []models.ChainRow) *models.OptionChain {
	return models.NewOptionChain(rows)
}

func row(strike int, typ models.OptionType, mid float64) models.ChainRow {
	return models.ChainRow{
		Contract: "test",
		Strike:   strike,
		Type:     typ,
		Bid:      mid - 0.5,
		Ask:      mid + 0.5,
	}
}

func TestRoundToStrike(t *testing.T) {
	tests := []struct {
		price float64
		want  int
	}{
		{4500.0, 4500},
		{4502.4, 4500},
		{4502.5, 4505},
		{4497.6, 4500},
		{4497.4, 4495},
	}
	for _, tt := range tests {
		if got := roundToStrike(tt.price); got != tt.want {
			t.Errorf("roundToStrike(%v) = %d, want %d", tt.price, got, tt.want)
		}
	}
}

func TestSelectPicksClosestRatio(t *testing.T) {
	params := testParams()
	params.MinWingWidth = 10
	params.MaxWingWidth = 20
	params.WingWidthStep = 10
	params.TargetWinLossRatio = 0.6

	chain := chainFrom([]models.ChainRow{
		row(4500, models.OptionCall, 4),
		row(4500, models.OptionPut, 4),
		row(4510, models.OptionCall, 2),
		row(4490, models.OptionPut, 2),
		row(4520, models.OptionCall, 1),
		row(4480, models.OptionPut, 1),
	})

	combo, ok := NewStrikeSelector(params).Select(4501.2, chain)
	if !ok {
		t.Fatal("expected a viable combination")
	}

	// d=10: credit 4, max loss 6, ratio 0.667 (closest to 0.6).
	// d=20: credit 6, max loss 14, ratio 0.429.
	if combo.WingWidth != 10 {
		t.Errorf("WingWidth = %d, want 10", combo.WingWidth)
	}
	if combo.ShortCall != 4500 || combo.ShortPut != 4500 {
		t.Errorf("short strikes = %d/%d, want 4500/4500", combo.ShortCall, combo.ShortPut)
	}
	if combo.LongCall != 4510 || combo.LongPut != 4490 {
		t.Errorf("long strikes = %d/%d, want 4510/4490", combo.LongCall, combo.LongPut)
	}
	if math.Abs(combo.NetCredit-4) > 1e-9 {
		t.Errorf("NetCredit = %v, want 4", combo.NetCredit)
	}
	if math.Abs(combo.MaxLoss-6) > 1e-9 {
		t.Errorf("MaxLoss = %v, want 6", combo.MaxLoss)
	}
}

func TestSelectRejectsNonPositiveCredit(t *testing.T) {
	params := testParams()
	params.MinWingWidth = 10
	params.MaxWingWidth = 10
	params.WingWidthStep = 10

	// Long legs priced above the shorts: negative credit.
	chain := chainFrom([]models.ChainRow{
		row(4500, models.OptionCall, 2),
		row(4500, models.OptionPut, 2),
		row(4510, models.OptionCall, 3),
		row(4490, models.OptionPut, 3),
	})

	if _, ok := NewStrikeSelector(params).Select(4500, chain); ok {
		t.Error("negative-credit combination must be rejected")
	}
}

func TestSelectRejectsMissingLeg(t *testing.T) {
	params := testParams()
	params.MinWingWidth = 10
	params.MaxWingWidth = 10
	params.WingWidthStep = 10

	// No 4490 put in the chain.
	chain := chainFrom([]models.ChainRow{
		row(4500, models.OptionCall, 4),
		row(4500, models.OptionPut, 4),
		row(4510, models.OptionCall, 2),
	})

	if _, ok := NewStrikeSelector(params).Select(4500, chain); ok {
		t.Error("combination with a missing leg must be rejected")
	}
}

func TestSelectRejectsZeroQuote(t *testing.T) {
	params := testParams()
	params.MinWingWidth = 10
	params.MaxWingWidth = 10
	params.WingWidthStep = 10

	chain := chainFrom([]models.ChainRow{
		row(4500, models.OptionCall, 4),
		row(4500, models.OptionPut, 4),
		row(4510, models.OptionCall, 2),
		{Contract: "test", Strike: 4490, Type: models.OptionPut}, // bid and ask both zero
	})

	if _, ok := NewStrikeSelector(params).Select(4500, chain); ok {
		t.Error("combination with an empty quote must be rejected")
	}
}
