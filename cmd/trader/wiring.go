package main

import (
	"context"
	"errors"
	"fmt"
	"time"
	"tradeengine/internal/broker"
	"tradeengine/internal/config"
	"tradeengine/internal/engine"
	"tradeengine/internal/logging"
	"tradeengine/internal/marketdata"
	"tradeengine/internal/repository"
	"tradeengine/strategies/smarsi"
	"tradeengine/types"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var errLiveTrading = errors.New("only paper trading is supported; set paper_trading: true")

var hundred = decimal.NewFromInt(100)

// app holds what every command needs and releases it on close.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	databases map[string]*repository.Database
	closers   []func()
}

func newApp(path string) (*app, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:       cfg,
		logger:    logging.New(cfg.Log.Level, cfg.Log.Format),
		databases: make(map[string]*repository.Database),
	}, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

// database opens one pool per DSN so the candle source and the state store
// can share a connection when they point at the same server.
func (a *app) database(ctx context.Context, dsn string) (*repository.Database, error) {
	if db, ok := a.databases[dsn]; ok {
		return db, nil
	}
	db, err := repository.NewDatabase(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.databases[dsn] = db
	a.closers = append(a.closers, db.Close)
	return db, nil
}

// openStore returns nil when persistence is disabled.
func (a *app) openStore(ctx context.Context) (engine.StateStore, error) {
	switch a.cfg.Storage.Driver {
	case "sqlite":
		store, err := repository.NewSQLiteStore(ctx, a.cfg.Storage.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		return store, nil
	case "postgres":
		db, err := a.database(ctx, a.cfg.Storage.DSN)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, nil
	}
}

func (a *app) loadState(ctx context.Context, store engine.StateStore) (*types.Portfolio, error) {
	if store == nil {
		return nil, nil
	}
	state, err := store.LoadState(ctx)
	if err != nil {
		return nil, fmt.Errorf("load saved state: %w", err)
	}
	return state, nil
}

// openSource builds the unguarded market data source. now is the clock the
// database source windows its lookback on.
func (a *app) openSource(ctx context.Context, now func() time.Time) (engine.MarketDataSource, error) {
	loc, err := a.cfg.Location()
	if err != nil {
		return nil, err
	}
	quality := marketdata.NewValidator(a.cfg.Data.MinBars)
	interval := a.cfg.Interval()

	switch a.cfg.Data.Source {
	case "postgres":
		db, err := a.database(ctx, a.cfg.Data.DSN)
		if err != nil {
			return nil, err
		}
		lookback := time.Duration(a.cfg.Data.LookbackDays) * 24 * time.Hour
		return marketdata.NewDatabaseSource(db, interval, lookback, now, quality).
			WithVIXTicker(a.cfg.Data.VIXTicker), nil
	default:
		return marketdata.NewCacheSource(a.cfg.Data.CacheDir, interval, loc, quality), nil
	}
}

func (a *app) guard(src engine.MarketDataSource) *marketdata.GuardedSource {
	opts := marketdata.DefaultGuardOptions()
	opts.Timeout = time.Duration(a.cfg.Data.RequestTimeoutSeconds) * time.Second
	opts.RequestsPerSecond = a.cfg.Data.RequestsPerSecond
	return marketdata.NewGuardedSource(src, opts, logging.Component(a.logger, "marketdata"))
}

type engineDeps struct {
	market     engine.MarketDataSource
	clock      engine.Clock
	store      engine.StateStore
	recorder   engine.Recorder
	initial    *types.Portfolio
	reportsDir string
}

func (a *app) buildEngine(deps engineDeps) (*engine.Engine, error) {
	cfg := a.cfg
	if !cfg.PaperTrading {
		return nil, errLiveTrading
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	openAt, closeAt, err := cfg.SessionBounds()
	if err != nil {
		return nil, err
	}
	days, err := cfg.Weekdays()
	if err != nil {
		return nil, err
	}
	strategy, err := smarsi.New(smarsi.DefaultConfig())
	if err != nil {
		return nil, err
	}

	portfolioCfg := engine.NewPortfolioConfig(decimal.NewFromFloat(cfg.InitialCapital))
	riskCfg := engine.NewRiskConfig(
		cfg.MaxPositions,
		decimal.NewFromFloat(cfg.RiskPerTrade),
		decimal.NewFromFloat(cfg.TransactionCostRate),
		decimal.NewFromFloat(cfg.CashReserveFraction),
	).
		WithDefaultBrackets(percent(cfg.DefaultStopLossPercent), percent(cfg.DefaultTakeProfitPercent)).
		WithMaxDrawdown(percent(cfg.MaxDrawdownPercent))
	trailingCfg := engine.NewTrailingConfig(
		cfg.TrailingStopEnabled,
		percent(cfg.TrailingStopActivationPercent),
		percent(cfg.TrailingStopPercent),
	)
	scheduleCfg := engine.NewScheduleConfig(loc, openAt, closeAt, days).
		WithIntervals(
			time.Duration(cfg.AnalysisIntervalSeconds)*time.Second,
			time.Duration(cfg.TickIntervalSeconds)*time.Second,
			time.Duration(cfg.ClosedIntervalSeconds)*time.Second,
		).
		WithFlattenAtClose(cfg.FlattenAtClose)
	executionCfg := engine.NewExecutionConfig(cfg.Interval(), cfg.Watchlist)

	reportsDir := deps.reportsDir
	if reportsDir == "" {
		reportsDir = cfg.Reports.Dir
	}
	reports := engine.NewFileReportSink(engine.NewReportingConfig(reportsDir, cfg.Reports.WriteTrades))
	paper := broker.NewPaperBroker(decimal.NewFromFloat(cfg.Broker.SlippageBps), deps.clock.Now)

	opts := engine.Options{
		Store:        deps.store,
		Reports:      reports,
		Recorder:     deps.recorder,
		Clock:        deps.clock,
		Logger:       logging.Component(a.logger, "engine"),
		InitialState: deps.initial,
	}
	return engine.NewEngine(
		portfolioCfg,
		riskCfg,
		trailingCfg,
		scheduleCfg,
		executionCfg,
		deps.market,
		strategy,
		paper,
		opts,
	), nil
}

// percent converts a config value in percent units (2.0) to a fraction.
func percent(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Div(hundred)
}
