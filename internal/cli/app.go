package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"tradefloor/internal/account"
	"tradefloor/internal/config"
	"tradefloor/internal/dashboard"
	"tradefloor/internal/floor"
	"tradefloor/internal/market"
	"tradefloor/internal/news"
	"tradefloor/internal/notify"
	"tradefloor/internal/storage"
	"tradefloor/internal/trace"
	"tradefloor/internal/trader"
)

// app wires the store, market data, accounts and traders together for
// the lifetime of a command.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *storage.Store
	accounts *account.Service
	market   *market.Service
	research *news.Client
	tracer   *trace.Tracer
	pusher   *notify.Pusher
	personas []trader.Persona
	traders  []*trader.Trader
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	mkt := market.NewService(cfg, store, logger)
	accounts := account.NewService(store, mkt, cfg.InitialBalance)
	tracer := trace.NewTracer(store)
	pusher := notify.NewPusher(cfg.PushoverToken, cfg.PushoverUser, logger)
	research := news.NewClient(filepath.Join(cfg.DataCacheDir, "news"), cfg.CacheEnabled)

	personas := trader.Personas()
	traders := make([]*trader.Trader, 0, len(personas))
	for _, persona := range personas {
		traders = append(traders, trader.New(persona, accounts, mkt, research, pusher, tracer, logger))
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		accounts: accounts,
		market:   mkt,
		research: research,
		tracer:   tracer,
		pusher:   pusher,
		personas: personas,
		traders:  traders,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close store", zap.Error(err))
	}
}

func (a *app) floor() *floor.Floor {
	interval := time.Duration(a.cfg.RunEveryNMinutes) * time.Minute
	return floor.New(a.traders, a.market, interval, a.cfg.RunWhenMarketIsClosed, a.logger)
}

func (a *app) dashboard() *dashboard.Server {
	return dashboard.NewServer(a.cfg.DashboardAddr, a.accounts, a.store, a.personas, a.logger)
}
