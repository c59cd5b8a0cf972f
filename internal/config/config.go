// Package config provides configuration management for the backtester.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"spx-backtester/internal/models"
)

// Config holds all application configuration.
type Config struct {
	Backtest BacktestConfig `mapstructure:"backtest"`
	Strategy StrategyParams `mapstructure:"strategy"`
	Data     DataConfig     `mapstructure:"data"`
}

// BacktestConfig holds the date range and execution settings for a run.
type BacktestConfig struct {
	StartDate             time.Time `mapstructure:"-"`
	EndDate               time.Time `mapstructure:"-"`
	Start                 string    `mapstructure:"start"` // YYYY-MM-DD
	End                   string    `mapstructure:"end"`   // YYYY-MM-DD
	InitialCapital        float64   `mapstructure:"initial_capital"`
	DataGranularity       string    `mapstructure:"data_granularity"` // "minute" or "5min"
	UseBidAsk             bool      `mapstructure:"use_bid_ask"`      // true = execute at bid/ask, false = mid
	CommissionPerContract float64   `mapstructure:"commission_per_contract"`
}

// StrategyParams holds the strategy thresholds controlling signal
// detection, strike search and exit rules.
type StrategyParams struct {
	// Entry signal
	ConsecutiveCandles int     `mapstructure:"consecutive_candles"`
	VolumeThreshold    float64 `mapstructure:"volume_threshold"`
	LookbackCandles    int     `mapstructure:"lookback_candles"`
	AvgRangeCandles    int     `mapstructure:"avg_range_candles"`
	RangeThreshold     float64 `mapstructure:"range_threshold"`

	// Iron Condor
	TradeSize          int     `mapstructure:"trade_size"`
	TargetWinLossRatio float64 `mapstructure:"target_win_loss_ratio"`
	MinWingWidth       int     `mapstructure:"min_wing_width"`
	MaxWingWidth       int     `mapstructure:"max_wing_width"`
	WingWidthStep      int     `mapstructure:"wing_width_step"`

	// Straddle
	StraddleDistanceMultiplier float64 `mapstructure:"straddle_distance_multiplier"`
	StraddleExitPercentage     float64 `mapstructure:"straddle_exit_percentage"`
	StraddleExitMultiplier     float64 `mapstructure:"straddle_exit_multiplier"`
}

// DataConfig holds market data source settings.
type DataConfig struct {
	Source     string  `mapstructure:"source"` // "synthetic" or "polygon"
	BaseURL    string  `mapstructure:"base_url"`
	APIKey     string  `mapstructure:"api_key"`
	Underlying string  `mapstructure:"underlying"`
	Liquidity  string  `mapstructure:"liquidity"`
	Spread     float64 `mapstructure:"spread"` // synthetic option bid/ask spread
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".spx-backtester"
	}
	return filepath.Join(home, ".config", "spx-backtester")
}

// DefaultStrategyParams returns the strategy defaults.
func DefaultStrategyParams() StrategyParams {
	return StrategyParams{
		ConsecutiveCandles:         3,
		VolumeThreshold:            0.5,
		LookbackCandles:            4,
		AvgRangeCandles:            2,
		RangeThreshold:             0.8,
		TradeSize:                  10,
		TargetWinLossRatio:         1.5,
		MinWingWidth:               15,
		MaxWingWidth:               70,
		WingWidthStep:              5,
		StraddleDistanceMultiplier: 2.5,
		StraddleExitPercentage:     0.5,
		StraddleExitMultiplier:     2.0,
	}
}

// DefaultBacktestConfig returns the backtest defaults.
func DefaultBacktestConfig() BacktestConfig {
	return BacktestConfig{
		InitialCapital:        100000,
		DataGranularity:       string(models.Granularity5Min),
		UseBidAsk:             true,
		CommissionPerContract: 0.65,
	}
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.yaml: %w", err)
		}
		// No config file: defaults only.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.ParseDates(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	bt := DefaultBacktestConfig()
	v.SetDefault("backtest.initial_capital", bt.InitialCapital)
	v.SetDefault("backtest.data_granularity", bt.DataGranularity)
	v.SetDefault("backtest.use_bid_ask", bt.UseBidAsk)
	v.SetDefault("backtest.commission_per_contract", bt.CommissionPerContract)

	st := DefaultStrategyParams()
	v.SetDefault("strategy.consecutive_candles", st.ConsecutiveCandles)
	v.SetDefault("strategy.volume_threshold", st.VolumeThreshold)
	v.SetDefault("strategy.lookback_candles", st.LookbackCandles)
	v.SetDefault("strategy.avg_range_candles", st.AvgRangeCandles)
	v.SetDefault("strategy.range_threshold", st.RangeThreshold)
	v.SetDefault("strategy.trade_size", st.TradeSize)
	v.SetDefault("strategy.target_win_loss_ratio", st.TargetWinLossRatio)
	v.SetDefault("strategy.min_wing_width", st.MinWingWidth)
	v.SetDefault("strategy.max_wing_width", st.MaxWingWidth)
	v.SetDefault("strategy.wing_width_step", st.WingWidthStep)
	v.SetDefault("strategy.straddle_distance_multiplier", st.StraddleDistanceMultiplier)
	v.SetDefault("strategy.straddle_exit_percentage", st.StraddleExitPercentage)
	v.SetDefault("strategy.straddle_exit_multiplier", st.StraddleExitMultiplier)

	v.SetDefault("data.source", "synthetic")
	v.SetDefault("data.base_url", "https://api.polygon.io")
	v.SetDefault("data.underlying", "I:SPX")
	v.SetDefault("data.liquidity", "SPY")
	v.SetDefault("data.spread", 1.5)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("POLYGON_API_KEY"); v != "" {
		cfg.Data.APIKey = v
	}
	if v := os.Getenv("BACKTEST_DATA_SOURCE"); v != "" {
		cfg.Data.Source = v
	}
}

// ParseDates converts the string date fields into time values.
func (c *Config) ParseDates() error {
	var err error
	if c.Backtest.Start != "" {
		c.Backtest.StartDate, err = time.Parse("2006-01-02", c.Backtest.Start)
		if err != nil {
			return fmt.Errorf("parsing backtest.start: %w", err)
		}
	}
	if c.Backtest.End != "" {
		c.Backtest.EndDate, err = time.Parse("2006-01-02", c.Backtest.End)
		if err != nil {
			return fmt.Errorf("parsing backtest.end: %w", err)
		}
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	b := c.Backtest
	if !b.StartDate.IsZero() && !b.EndDate.IsZero() && b.EndDate.Before(b.StartDate) {
		return fmt.Errorf("backtest.end must not be before backtest.start")
	}
	if b.InitialCapital <= 0 {
		return fmt.Errorf("backtest.initial_capital must be positive")
	}
	if b.CommissionPerContract < 0 {
		return fmt.Errorf("backtest.commission_per_contract must be non-negative")
	}
	if b.DataGranularity != string(models.GranularityMinute) && b.DataGranularity != string(models.Granularity5Min) {
		return fmt.Errorf("backtest.data_granularity must be 'minute' or '5min', got %q", b.DataGranularity)
	}

	s := c.Strategy
	if s.TradeSize <= 0 {
		return fmt.Errorf("strategy.trade_size must be positive")
	}
	if s.ConsecutiveCandles <= 0 || s.LookbackCandles <= 0 || s.AvgRangeCandles <= 0 {
		return fmt.Errorf("strategy candle windows must be positive")
	}
	if s.MinWingWidth <= 0 || s.MaxWingWidth < s.MinWingWidth || s.WingWidthStep <= 0 {
		return fmt.Errorf("strategy wing width range is invalid")
	}
	if s.StraddleExitPercentage < 0 || s.StraddleExitPercentage > 1 {
		return fmt.Errorf("strategy.straddle_exit_percentage must be in [0, 1]")
	}
	if s.StraddleExitMultiplier <= 0 {
		return fmt.Errorf("strategy.straddle_exit_multiplier must be positive")
	}
	return nil
}
