package engine

import (
	"context"
	"time"

	"spx-backtester/internal/errors"
	"spx-backtester/internal/models"
)

// fakeSource is a canned market data source for engine tests.
type fakeSource struct {
	bars    map[string][]models.Bar
	volumes map[string][]models.VolumeBar
	chain   []models.ChainRow
	quotes  map[string]models.Quote

	failDays   map[string]bool
	quoteCalls int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		bars:     make(map[string][]models.Bar),
		volumes:  make(map[string][]models.VolumeBar),
		quotes:   make(map[string]models.Quote),
		failDays: make(map[string]bool),
	}
}

func dayKey(date time.Time) string { return date.Format("2006-01-02") }

func (f *fakeSource) UnderlyingBars(_ context.Context, date time.Time, _ models.Granularity) ([]models.Bar, error) {
	if f.failDays[dayKey(date)] {
		return nil, errors.ErrNoData
	}
	return f.bars[dayKey(date)], nil
}

func (f *fakeSource) LiquidityVolumeBars(_ context.Context, date time.Time, _ models.Granularity) ([]models.VolumeBar, error) {
	if f.failDays[dayKey(date)] {
		return nil, errors.ErrNoData
	}
	return f.volumes[dayKey(date)], nil
}

func (f *fakeSource) OptionChain(_ context.Context, _, _ time.Time, _ string, _ models.Granularity) ([]models.ChainRow, error) {
	return f.chain, nil
}

func (f *fakeSource) OptionQuotes(_ context.Context, contracts []string, _ time.Time) (map[string]models.Quote, error) {
	f.quoteCalls++
	out := make(map[string]models.Quote, len(contracts))
	for _, c := range contracts {
		if q, ok := f.quotes[c]; ok {
			out[c] = q
		}
	}
	return out, nil
}
