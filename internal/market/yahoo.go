package market

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"

	"tradefloor/internal/storage"
)

// YahooSource serves prior-close prices from Yahoo Finance. Prices are
// collected into a per-day map persisted in the market table, so a day's
// lookups cost at most one remote call per symbol and survive restarts.
type YahooSource struct {
	store *storage.Store

	mu     sync.Mutex
	day    string
	prices map[string]decimal.Decimal
}

func NewYahooSource(store *storage.Store) *YahooSource {
	return &YahooSource{store: store}
}

func (y *YahooSource) Name() string { return "yahoo" }

func (y *YahooSource) SharePrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	today := time.Now().Format("2006-01-02")

	y.mu.Lock()
	defer y.mu.Unlock()

	if err := y.loadDayLocked(ctx, today); err != nil {
		return decimal.Zero, err
	}
	if price, ok := y.prices[symbol]; ok {
		return price, nil
	}

	var price decimal.Decimal
	err := WithRetry(DefaultRetryConfig(), func() error {
		q, err := quote.Get(symbol)
		if err != nil {
			return fmt.Errorf("get quote for %s: %w", symbol, err)
		}
		if q == nil {
			// Yahoo answers nil for symbols it does not know.
			price = decimal.Zero
			return nil
		}
		price = decimal.NewFromFloat(q.RegularMarketPrice)
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	y.prices[symbol] = price
	y.saveDayLocked(ctx, today)
	return price, nil
}

// loadDayLocked makes y.prices the map for the given day, reading the
// stored map when the process has not seen that day yet.
func (y *YahooSource) loadDayLocked(ctx context.Context, today string) error {
	if y.day == today && y.prices != nil {
		return nil
	}

	y.day = today
	y.prices = map[string]decimal.Decimal{}

	data, err := y.store.ReadMarket(ctx, today)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}
	if err := json.Unmarshal(data, &y.prices); err != nil {
		return fmt.Errorf("decode market cache for %s: %w", today, err)
	}
	return nil
}

func (y *YahooSource) saveDayLocked(ctx context.Context, today string) {
	data, err := json.Marshal(y.prices)
	if err != nil {
		return
	}
	// Cache write failures cost an extra API call later, nothing more.
	_ = y.store.WriteMarket(ctx, today, data)
}
