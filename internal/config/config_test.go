package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	"tradeengine/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_OverridesKeepDefaults(t *testing.T) {
	path := writeConfig(t, `
initial_capital: 100000
max_positions: 3
watchlist: [INFY, TCS]
trading_hours:
  start: "10:00"
data:
  timeframe: "60"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 100000.0, cfg.InitialCapital)
	assert.Equal(t, 3, cfg.MaxPositions)
	assert.Equal(t, []string{"INFY", "TCS"}, cfg.Watchlist)
	assert.Equal(t, "10:00", cfg.TradingHours.Start)
	assert.Equal(t, "15:30", cfg.TradingHours.End, "unset nested key keeps its default")
	assert.Equal(t, types.Hour, cfg.Interval())
	assert.Equal(t, "data_cache", cfg.Data.CacheDir)
	assert.Equal(t, 0.01, cfg.RiskPerTrade)
	assert.Equal(t, 900, cfg.AnalysisIntervalSeconds)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("TRADER_TEST_DSN", "postgres://trader@localhost/trader")
	path := writeConfig(t, `
storage:
  driver: postgres
  dsn: ${TRADER_TEST_DSN}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://trader@localhost/trader", cfg.Storage.DSN)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "max_positions: [oops")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr []string
	}{
		{"defaults are valid", func(c *Config) {}, nil},
		{"non-positive capital", func(c *Config) { c.InitialCapital = 0 }, []string{"initial_capital"}},
		{"risk per trade out of range", func(c *Config) { c.RiskPerTrade = 1.5 }, []string{"risk_per_trade"}},
		{"zero positions", func(c *Config) { c.MaxPositions = 0 }, []string{"max_positions"}},
		{"empty watchlist", func(c *Config) { c.Watchlist = nil }, []string{"watchlist"}},
		{"bad hours", func(c *Config) { c.TradingHours.Start = "9am" }, []string{"trading_hours"}},
		{"inverted hours", func(c *Config) { c.TradingHours = TradingHours{Start: "16:00", End: "09:00"} }, []string{"start must be before end"}},
		{"bad weekday", func(c *Config) { c.TradingDays = []string{"Mon", "Funday"} }, []string{"trading_days"}},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, []string{"timezone"}},
		{"storage without dsn", func(c *Config) { c.Storage.Driver = "sqlite" }, []string{"storage.dsn"}},
		{"unknown source", func(c *Config) { c.Data.Source = "ftp" }, []string{"data.source"}},
		{
			name:    "every problem is reported",
			mutate:  func(c *Config) { c.InitialCapital = -1; c.TickIntervalSeconds = 0 },
			wantErr: []string{"initial_capital", "tick_interval_seconds"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestSessionHelpers(t *testing.T) {
	cfg := Default()

	openAt, closeAt, err := cfg.SessionBounds()
	require.NoError(t, err)
	assert.Equal(t, 9*time.Hour+15*time.Minute, openAt)
	assert.Equal(t, 15*time.Hour+30*time.Minute, closeAt)

	cfg.TradingDays = []string{"monday", "Wed", "FRI"}
	days, err := cfg.Weekdays()
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday, time.Friday}, days)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}
