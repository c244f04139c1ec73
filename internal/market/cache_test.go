package market

import (
	"errors"
	"testing"
	"time"
)

func TestCacheRoundTrip(t *testing.T) {
	cm := NewCacheManager(t.TempDir(), time.Minute, true)

	type payload struct {
		Price float64 `json:"price"`
	}

	var got payload
	if cm.Get("test", "quote", "AAPL", &got) {
		t.Fatal("empty cache should miss")
	}

	if err := cm.Set("test", "quote", "AAPL", payload{Price: 123.45}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !cm.Get("test", "quote", "AAPL", &got) {
		t.Fatal("expected a cache hit")
	}
	if got.Price != 123.45 {
		t.Fatalf("expected 123.45, got %f", got.Price)
	}

	// Different params miss.
	if cm.Get("test", "quote", "TSLA", &got) {
		t.Fatal("different params should miss")
	}
}

func TestCacheDisabled(t *testing.T) {
	cm := NewCacheManager(t.TempDir(), time.Minute, false)

	if err := cm.Set("test", "quote", "AAPL", 1); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var got int
	if cm.Get("test", "quote", "AAPL", &got) {
		t.Fatal("disabled cache should always miss")
	}
}

func TestCacheExpiry(t *testing.T) {
	cm := NewCacheManager(t.TempDir(), time.Nanosecond, true)

	if err := cm.Set("test", "quote", "AAPL", 1); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(time.Millisecond)

	var got int
	if cm.Get("test", "quote", "AAPL", &got) {
		t.Fatal("expired entry should miss")
	}
}

func TestWithRetry(t *testing.T) {
	attempts := 0
	err := WithRetry(&RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2}, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRetry: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestWithRetryExhausted(t *testing.T) {
	sentinel := errors.New("down")
	err := WithRetry(&RetryConfig{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2}, func() error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel, got %v", err)
	}
}
