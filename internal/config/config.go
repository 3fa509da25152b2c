// Package config loads the trader's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
	_ "time/tzdata"
	"tradeengine/types"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	InitialCapital                float64      `yaml:"initial_capital"`
	MaxPositions                  int          `yaml:"max_positions"`
	RiskPerTrade                  float64      `yaml:"risk_per_trade"`
	TrailingStopEnabled           bool         `yaml:"trailing_stop_enabled"`
	TrailingStopPercent           float64      `yaml:"trailing_stop_percent"`
	TrailingStopActivationPercent float64      `yaml:"trailing_stop_activation_percent"`
	TransactionCostRate           float64      `yaml:"transaction_cost_rate"`
	CashReserveFraction           float64      `yaml:"cash_reserve_fraction"`
	AnalysisIntervalSeconds       int          `yaml:"analysis_interval_seconds"`
	TickIntervalSeconds           int          `yaml:"tick_interval_seconds"`
	ClosedIntervalSeconds         int          `yaml:"closed_interval_seconds"`
	TradingHours                  TradingHours `yaml:"trading_hours"`
	TradingDays                   []string     `yaml:"trading_days"`
	Timezone                      string       `yaml:"timezone"`
	Watchlist                     []string     `yaml:"watchlist"`
	DefaultStopLossPercent        float64      `yaml:"default_stop_loss_percent"`
	DefaultTakeProfitPercent      float64      `yaml:"default_take_profit_percent"`
	MaxDrawdownPercent            float64      `yaml:"max_drawdown_percent"`
	FlattenAtClose                bool         `yaml:"flatten_at_close"`
	PaperTrading                  bool         `yaml:"paper_trading"`

	Broker  BrokerConfig  `yaml:"broker"`
	Data    DataConfig    `yaml:"data"`
	Storage StorageConfig `yaml:"storage"`
	Reports ReportsConfig `yaml:"reports"`
	Log     LogConfig     `yaml:"log"`
	HTTP    HTTPConfig    `yaml:"http"`
}

type TradingHours struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

type BrokerConfig struct {
	SlippageBps float64 `yaml:"slippage_bps"`
}

type DataConfig struct {
	// Source is "cache" (CSV files) or "postgres".
	Source                string  `yaml:"source"`
	CacheDir              string  `yaml:"cache_dir"`
	Timeframe             string  `yaml:"timeframe"`
	MinBars               int     `yaml:"min_bars"`
	RequestTimeoutSeconds int     `yaml:"request_timeout_seconds"`
	RequestsPerSecond     float64 `yaml:"requests_per_second"`
	LookbackDays          int     `yaml:"lookback_days"`
	DSN                   string  `yaml:"dsn"`
	// VIXTicker is read from the database source for the market context.
	VIXTicker string `yaml:"vix_ticker"`
}

type StorageConfig struct {
	// Driver is "none", "sqlite" or "postgres".
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type ReportsConfig struct {
	Dir         string `yaml:"dir"`
	WriteTrades bool   `yaml:"write_trades"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

// Default returns the configuration used for any key the file leaves out.
func Default() *Config {
	return &Config{
		InitialCapital:                250000,
		MaxPositions:                  5,
		RiskPerTrade:                  0.01,
		TrailingStopEnabled:           true,
		TrailingStopPercent:           2.0,
		TrailingStopActivationPercent: 1.5,
		TransactionCostRate:           0.002,
		CashReserveFraction:           0.20,
		AnalysisIntervalSeconds:       900,
		TickIntervalSeconds:           30,
		ClosedIntervalSeconds:         60,
		TradingHours:                  TradingHours{Start: "09:15", End: "15:30"},
		TradingDays:                   []string{"Mon", "Tue", "Wed", "Thu", "Fri"},
		Timezone:                      "Asia/Kolkata",
		Watchlist: []string{
			"RELIANCE", "TCS", "HDFCBANK", "INFY", "HINDUNILVR",
			"ICICIBANK", "KOTAKBANK", "LT", "ITC", "AXISBANK",
		},
		DefaultStopLossPercent:   2.0,
		DefaultTakeProfitPercent: 3.0,
		PaperTrading:             true,
		Data: DataConfig{
			Source:                "cache",
			CacheDir:              "data_cache",
			Timeframe:             "15",
			MinBars:               20,
			RequestTimeoutSeconds: 10,
			LookbackDays:          30,
			VIXTicker:             "INDIAVIX",
		},
		Storage: StorageConfig{Driver: "none"},
		Reports: ReportsConfig{Dir: "daily_reports", WriteTrades: true},
		Log:     LogConfig{Level: "info", Format: "console"},
		HTTP:    HTTPConfig{Enabled: true, Listen: ":8080"},
	}
}

// Load reads a YAML file over the defaults. A .env file in the working
// directory is loaded first so ${VAR} references can point at it. A missing
// file is not an error: the defaults are returned.
func Load(filename string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if filename != "" {
		data, err := os.ReadFile(filename)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, field string, value interface{}, msg string) {
		if !ok {
			errs = append(errs, ValidationError{Field: field, Value: value, Message: msg})
		}
	}

	check(c.InitialCapital > 0, "initial_capital", c.InitialCapital, "must be positive")
	check(c.MaxPositions >= 1, "max_positions", c.MaxPositions, "must be at least 1")
	check(c.RiskPerTrade > 0 && c.RiskPerTrade < 1, "risk_per_trade", c.RiskPerTrade, "must be between 0 and 1")
	check(c.TrailingStopPercent >= 0 && c.TrailingStopPercent < 100, "trailing_stop_percent", c.TrailingStopPercent, "must be a percentage below 100")
	check(c.TrailingStopActivationPercent >= 0, "trailing_stop_activation_percent", c.TrailingStopActivationPercent, "must not be negative")
	check(c.TransactionCostRate >= 0 && c.TransactionCostRate < 1, "transaction_cost_rate", c.TransactionCostRate, "must be between 0 and 1")
	check(c.CashReserveFraction >= 0 && c.CashReserveFraction < 1, "cash_reserve_fraction", c.CashReserveFraction, "must be between 0 and 1")
	check(c.AnalysisIntervalSeconds > 0, "analysis_interval_seconds", c.AnalysisIntervalSeconds, "must be positive")
	check(c.TickIntervalSeconds > 0, "tick_interval_seconds", c.TickIntervalSeconds, "must be positive")
	check(c.ClosedIntervalSeconds > 0, "closed_interval_seconds", c.ClosedIntervalSeconds, "must be positive")
	check(len(c.Watchlist) > 0, "watchlist", c.Watchlist, "must name at least one symbol")
	check(c.DefaultStopLossPercent > 0 && c.DefaultStopLossPercent < 100, "default_stop_loss_percent", c.DefaultStopLossPercent, "must be a percentage below 100")
	check(c.DefaultTakeProfitPercent > 0, "default_take_profit_percent", c.DefaultTakeProfitPercent, "must be positive")
	check(c.MaxDrawdownPercent >= 0 && c.MaxDrawdownPercent < 100, "max_drawdown_percent", c.MaxDrawdownPercent, "must be a percentage below 100")
	check(c.Broker.SlippageBps >= 0, "broker.slippage_bps", c.Broker.SlippageBps, "must not be negative")
	check(c.Data.Source == "cache" || c.Data.Source == "postgres", "data.source", c.Data.Source, "must be cache or postgres")
	check(c.Data.MinBars >= 1, "data.min_bars", c.Data.MinBars, "must be at least 1")
	check(c.Data.RequestTimeoutSeconds > 0, "data.request_timeout_seconds", c.Data.RequestTimeoutSeconds, "must be positive")
	check(c.Data.RequestsPerSecond >= 0, "data.requests_per_second", c.Data.RequestsPerSecond, "must not be negative")
	check(c.Data.Source != "postgres" || c.Data.DSN != "", "data.dsn", c.Data.DSN, "required for the postgres source")
	check(c.Storage.Driver == "none" || c.Storage.Driver == "sqlite" || c.Storage.Driver == "postgres", "storage.driver", c.Storage.Driver, "must be none, sqlite or postgres")
	check(c.Storage.Driver == "none" || c.Storage.DSN != "", "storage.dsn", c.Storage.DSN, "required when a storage driver is set")

	if _, err := types.ParseInterval(c.Data.Timeframe); err != nil {
		errs = append(errs, ValidationError{Field: "data.timeframe", Value: c.Data.Timeframe, Message: err.Error()})
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, ValidationError{Field: "timezone", Value: c.Timezone, Message: err.Error()})
	}
	openAt, closeAt, err := c.SessionBounds()
	if err != nil {
		errs = append(errs, ValidationError{Field: "trading_hours", Value: c.TradingHours, Message: err.Error()})
	} else if openAt >= closeAt {
		errs = append(errs, ValidationError{Field: "trading_hours", Value: c.TradingHours, Message: "start must be before end"})
	}
	if _, err := c.Weekdays(); err != nil {
		errs = append(errs, ValidationError{Field: "trading_days", Value: c.TradingDays, Message: err.Error()})
	}

	return errors.Join(errs...)
}

func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// SessionBounds returns the session open and close as offsets from midnight.
func (c *Config) SessionBounds() (time.Duration, time.Duration, error) {
	openAt, err := parseClock(c.TradingHours.Start)
	if err != nil {
		return 0, 0, fmt.Errorf("start: %w", err)
	}
	closeAt, err := parseClock(c.TradingHours.End)
	if err != nil {
		return 0, 0, fmt.Errorf("end: %w", err)
	}
	return openAt, closeAt, nil
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

func (c *Config) Weekdays() ([]time.Weekday, error) {
	if len(c.TradingDays) == 0 {
		return nil, errors.New("no trading days")
	}
	days := make([]time.Weekday, 0, len(c.TradingDays))
	for _, name := range c.TradingDays {
		key := strings.ToLower(name)
		if len(key) > 3 {
			key = key[:3]
		}
		d, ok := weekdayNames[key]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}
		days = append(days, d)
	}
	return days, nil
}

func (c *Config) Interval() types.Interval {
	i, _ := types.ParseInterval(c.Data.Timeframe)
	return i
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func expandEnvVars(s string) string {
	return os.Expand(s, os.Getenv)
}
