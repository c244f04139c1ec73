package cli

import (
	"strings"
	"testing"

	"tradefloor/internal/config"
)

func TestConfigWarnings(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MarketDataPlan = config.PlanEOD
	cfg.FinnhubAPIKey = ""
	cfg.PushoverToken = ""
	cfg.PushoverUser = ""

	warnings := configWarnings(cfg)
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %d: %v", len(warnings), warnings)
	}

	// The Finnhub warning is about the plan that needs the key, not the
	// one currently active.
	if !strings.Contains(warnings[0], "delayed plan will require") {
		t.Fatalf("unexpected Finnhub warning %q", warnings[0])
	}
	if !strings.Contains(warnings[1], "push notifications disabled") {
		t.Fatalf("unexpected Pushover warning %q", warnings[1])
	}
}

func TestConfigWarningsSatisfied(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MarketDataPlan = config.PlanDelayed
	cfg.FinnhubAPIKey = "key"
	cfg.PushoverToken = "token"
	cfg.PushoverUser = "user"

	if warnings := configWarnings(cfg); len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
}
