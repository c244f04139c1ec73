package market

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// FinnhubSource serves delayed quotes from the Finnhub REST API.
type FinnhubSource struct {
	client *resty.Client
	cache  *CacheManager
	apiKey string
}

func NewFinnhubSource(apiKey, cacheDir string, cacheEnabled bool) *FinnhubSource {
	cache := NewCacheManager(filepath.Join(cacheDir, "finnhub"), 15*time.Minute, cacheEnabled)

	client := resty.New()
	client.SetBaseURL("https://finnhub.io/api/v1")
	client.SetTimeout(30 * time.Second)

	return &FinnhubSource{
		client: client,
		cache:  cache,
		apiKey: apiKey,
	}
}

func (fs *FinnhubSource) Name() string { return "finnhub" }

// SetBaseURL points the client at a different endpoint, for tests.
func (fs *FinnhubSource) SetBaseURL(url string) {
	fs.client.SetBaseURL(url)
}

// finnhubQuote is the /quote response shape.
type finnhubQuote struct {
	Current   float64 `json:"c"`
	PrevClose float64 `json:"pc"`
}

func (fs *FinnhubSource) SharePrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if fs.apiKey == "" {
		return decimal.Zero, fmt.Errorf("finnhub API key not configured")
	}

	var cached finnhubQuote
	if fs.cache.Get("finnhub", "quote", symbol, &cached) {
		return quotePrice(cached), nil
	}

	var fq finnhubQuote
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := fs.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"symbol": symbol,
				"token":  fs.apiKey,
			}).
			Get("/quote")
		if err != nil {
			return fmt.Errorf("fetch quote for %s: %w", symbol, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
		}
		if err := json.Unmarshal(resp.Body(), &fq); err != nil {
			return fmt.Errorf("parse quote response: %w", err)
		}
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	fs.cache.Set("finnhub", "quote", symbol, fq)
	return quotePrice(fq), nil
}

// Outside market hours the current price is 0; fall back to prior close.
func quotePrice(q finnhubQuote) decimal.Decimal {
	if q.Current != 0 {
		return decimal.NewFromFloat(q.Current)
	}
	return decimal.NewFromFloat(q.PrevClose)
}
