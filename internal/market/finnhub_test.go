package market

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFinnhubSharePrice(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/quote" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("symbol") != "AAPL" {
			t.Errorf("unexpected symbol %s", r.URL.Query().Get("symbol"))
		}
		if r.URL.Query().Get("token") != "test-key" {
			t.Errorf("unexpected token %s", r.URL.Query().Get("token"))
		}
		fmt.Fprint(w, `{"c": 187.5, "pc": 185.0}`)
	}))
	defer server.Close()

	fs := NewFinnhubSource("test-key", t.TempDir(), true)
	fs.SetBaseURL(server.URL)

	price, err := fs.SharePrice(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("SharePrice: %v", err)
	}
	if !price.Equal(decimal.NewFromFloat(187.5)) {
		t.Fatalf("expected 187.5, got %s", price)
	}

	// Second lookup is served from the cache.
	if _, err := fs.SharePrice(context.Background(), "AAPL"); err != nil {
		t.Fatalf("cached SharePrice: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", calls)
	}
}

func TestFinnhubFallsBackToPrevClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"c": 0, "pc": 42.25}`)
	}))
	defer server.Close()

	fs := NewFinnhubSource("test-key", t.TempDir(), false)
	fs.SetBaseURL(server.URL)

	price, err := fs.SharePrice(context.Background(), "KO")
	if err != nil {
		t.Fatalf("SharePrice: %v", err)
	}
	if !price.Equal(decimal.NewFromFloat(42.25)) {
		t.Fatalf("expected previous close 42.25, got %s", price)
	}
}

func TestFinnhubRequiresKey(t *testing.T) {
	fs := NewFinnhubSource("", t.TempDir(), false)
	if _, err := fs.SharePrice(context.Background(), "AAPL"); err == nil {
		t.Fatal("expected an error without an API key")
	}
}
