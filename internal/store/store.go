// Package store provides run persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"spx-backtester/internal/config"
	"spx-backtester/internal/models"
)

// Run is one persisted backtest: its configuration, window and summary.
type Run struct {
	ID          int64
	CreatedAt   time.Time
	StartDate   time.Time
	EndDate     time.Time
	DataSource  string
	InitialCap  float64
	FinalEquity float64
	TotalTrades int
	TotalPnL    float64
	Params      config.StrategyParams
	Statistics  models.Statistics
}

// RunFilter narrows ListRuns output.
type RunFilter struct {
	From  time.Time
	To    time.Time
	Limit int
}

// RunStore defines the interface for backtest run persistence.
type RunStore interface {
	SaveRun(ctx context.Context, run *Run, trades []*models.Trade) (int64, error)
	GetRun(ctx context.Context, id int64) (*Run, error)
	GetRunTrades(ctx context.Context, id int64) ([]*models.Trade, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)
	DeleteRun(ctx context.Context, id int64) error
	Close() error
}
