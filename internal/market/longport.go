package market

import (
	"context"
	"errors"
	"fmt"

	lpconfig "github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"
	"github.com/shopspring/decimal"
)

// LongportSource serves realtime prices through the Longport OpenAPI.
type LongportSource struct {
	quoteCtx *quote.QuoteContext
}

func NewLongportSource(appKey, appSecret, accessToken string) (*LongportSource, error) {
	if appKey == "" || appSecret == "" || accessToken == "" {
		return nil, errors.New("longport API credentials not configured")
	}

	conf, err := lpconfig.New(lpconfig.WithConfigKey(appKey, appSecret, accessToken))
	if err != nil {
		return nil, err
	}
	quoteContext, err := quote.NewFromCfg(conf)
	if err != nil {
		return nil, err
	}

	return &LongportSource{quoteCtx: quoteContext}, nil
}

func (ls *LongportSource) Name() string { return "longport" }

func (ls *LongportSource) SharePrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if ls.quoteCtx == nil {
		return decimal.Zero, errors.New("quote context is nil")
	}

	sticks, err := ls.quoteCtx.Candlesticks(ctx, symbol, quote.PeriodDay, 1, quote.AdjustTypeNo)
	if err != nil {
		return decimal.Zero, fmt.Errorf("candlesticks for %s: %w", symbol, err)
	}
	if len(sticks) == 0 {
		return decimal.Zero, nil
	}

	last := sticks[len(sticks)-1]
	if last == nil || last.Close == nil {
		return decimal.Zero, nil
	}
	return *last.Close, nil
}
