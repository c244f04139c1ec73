// Package market resolves share prices through the configured data plan
// and decides whether the exchange is open. When no real source is
// available the service hands out simulated prices so the floor keeps
// running.
package market

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradefloor/internal/config"
	"tradefloor/internal/storage"
)

// Source is a single upstream price provider. A zero price with a nil
// error means the source does not know the symbol.
type Source interface {
	Name() string
	SharePrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Service is the price interface the rest of the floor uses.
type Service struct {
	source Source // nil when the floor runs fully simulated
	logger *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewService builds the price service for the configured plan. Plans the
// configuration cannot satisfy degrade to the simulated source.
func NewService(cfg *config.Config, store *storage.Store, logger *zap.Logger) *Service {
	s := &Service{
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}

	switch cfg.MarketDataPlan {
	case config.PlanRealtime:
		source, err := NewLongportSource(cfg.LongportAppKey, cfg.LongportAppSecret, cfg.LongportAccessToken)
		if err != nil {
			logger.Warn("realtime plan unavailable, using simulated prices", zap.Error(err))
			return s
		}
		s.source = source
	case config.PlanDelayed:
		if cfg.FinnhubAPIKey == "" {
			logger.Warn("delayed plan without FINNHUB_API_KEY, using simulated prices")
			return s
		}
		s.source = NewFinnhubSource(cfg.FinnhubAPIKey, cfg.DataCacheDir, cfg.CacheEnabled)
	default:
		s.source = NewYahooSource(store)
	}
	return s
}

// NewSimulatedService returns a service that only hands out simulated
// prices. Used by tests and by resets that must not hit the network.
func NewSimulatedService(logger *zap.Logger) *Service {
	return &Service{
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
}

// SharePrice resolves the price for a symbol. Source failures degrade to
// a simulated price rather than halting the floor; a zero result means
// the symbol is unknown.
func (s *Service) SharePrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return decimal.Zero, nil
	}

	if s.source != nil {
		price, err := s.source.SharePrice(ctx, symbol)
		if err == nil {
			return price, nil
		}
		s.logger.Warn("price source failed, using simulated price",
			zap.String("source", s.source.Name()),
			zap.String("symbol", symbol),
			zap.Error(err))
	}
	return s.simulatedPrice(), nil
}

// Whole dollars between 1 and 100, like a coin-flip market.
func (s *Service) simulatedPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return decimal.NewFromInt(int64(s.rng.Intn(100) + 1))
}

// nyse is the exchange timezone for the open-hours check.
var nyse = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}()

// IsOpen reports whether the NYSE regular session is trading: weekdays
// 09:30–16:00 Eastern. Exchange holidays are not modelled.
func (s *Service) IsOpen() bool {
	return isOpenAt(s.now().In(nyse))
}

func isOpenAt(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	minutes := t.Hour()*60 + t.Minute()
	return minutes >= 9*60+30 && minutes < 16*60
}
