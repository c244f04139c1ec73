package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Market data plans. The plan decides which price source the market
// service talks to; anything it cannot serve falls back to simulated prices.
const (
	PlanEOD      = "eod"      // Yahoo Finance prior-close prices, cached per day
	PlanDelayed  = "delayed"  // Finnhub quotes on a 15 minute delay
	PlanRealtime = "realtime" // Longport realtime quotes
)

type Config struct {
	ProjectDir   string `json:"project_dir"`
	DBPath       string `json:"db_path"`
	DataCacheDir string `json:"data_cache_dir"`

	RunEveryNMinutes      int     `json:"run_every_n_minutes"`
	RunWhenMarketIsClosed bool    `json:"run_when_market_is_closed"`
	InitialBalance        float64 `json:"initial_balance"`

	MarketDataPlan string `json:"market_data_plan"`
	CacheEnabled   bool   `json:"cache_enabled"`
	Debug          bool   `json:"debug"`

	DashboardAddr string `json:"dashboard_addr"`

	// Market/news data API keys
	FinnhubAPIKey string `json:"finnhub_api_key"`

	// Longport API configuration (realtime plan)
	LongportAppKey      string `json:"longport_app_key"`
	LongportAppSecret   string `json:"longport_app_secret"`
	LongportAccessToken string `json:"longport_access_token"`

	// Pushover push notification credentials
	PushoverToken string `json:"pushover_token"`
	PushoverUser  string `json:"pushover_user"`
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	cfg := &Config{
		ProjectDir:   currentDir,
		DBPath:       filepath.Join(currentDir, "data", "accounts.db"),
		DataCacheDir: filepath.Join(currentDir, "data", "cache"),

		RunEveryNMinutes:      30,
		RunWhenMarketIsClosed: false,
		InitialBalance:        10_000.0,

		MarketDataPlan: PlanEOD,
		CacheEnabled:   true,
		Debug:          false,

		DashboardAddr: ":8090",
	}

	// Load environment variables from .env file
	_ = godotenv.Load()

	// Override with environment variables if they exist
	cfg.loadFromEnv()

	return cfg
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("PROJECT_DIR"); val != "" {
		c.ProjectDir = val
	}
	if val := os.Getenv("TRADEFLOOR_DB"); val != "" {
		c.DBPath = val
	}
	if val := os.Getenv("DATA_CACHE_DIR"); val != "" {
		c.DataCacheDir = val
	}

	if val := os.Getenv("RUN_EVERY_N_MINUTES"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.RunEveryNMinutes = v
		}
	}
	if val := os.Getenv("RUN_EVEN_WHEN_MARKET_IS_CLOSED"); val != "" {
		if enabled, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
			c.RunWhenMarketIsClosed = enabled
		}
	}
	if val := os.Getenv("INITIAL_BALANCE"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil && v > 0 {
			c.InitialBalance = v
		}
	}

	if val := os.Getenv("MARKET_DATA_PLAN"); val != "" {
		c.MarketDataPlan = strings.ToLower(strings.TrimSpace(val))
	}
	if val := os.Getenv("CACHE_ENABLED"); val != "" {
		if cache, err := strconv.ParseBool(val); err == nil {
			c.CacheEnabled = cache
		}
	}
	if val := os.Getenv("TRADEFLOOR_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}

	if val := os.Getenv("DASHBOARD_ADDR"); val != "" {
		c.DashboardAddr = val
	}

	if val := os.Getenv("FINNHUB_API_KEY"); val != "" {
		c.FinnhubAPIKey = val
	}

	if val := os.Getenv("LONGPORT_APP_KEY"); val != "" {
		c.LongportAppKey = val
	}
	if val := os.Getenv("LONGPORT_APP_SECRET"); val != "" {
		c.LongportAppSecret = val
	}
	if val := os.Getenv("LONGPORT_ACCESS_TOKEN"); val != "" {
		c.LongportAccessToken = val
	}

	if val := os.Getenv("PUSHOVER_TOKEN"); val != "" {
		c.PushoverToken = val
	}
	if val := os.Getenv("PUSHOVER_USER"); val != "" {
		c.PushoverUser = val
	}
}

// Validate reports configuration problems that would surprise at runtime.
func (c *Config) Validate() error {
	switch c.MarketDataPlan {
	case PlanEOD:
	case PlanDelayed:
		if c.FinnhubAPIKey == "" {
			return fmt.Errorf("market data plan %q requires FINNHUB_API_KEY", c.MarketDataPlan)
		}
	case PlanRealtime:
		if c.LongportAppKey == "" || c.LongportAppSecret == "" || c.LongportAccessToken == "" {
			return fmt.Errorf("market data plan %q requires Longport credentials", c.MarketDataPlan)
		}
	default:
		return fmt.Errorf("unknown market data plan %q", c.MarketDataPlan)
	}

	if c.RunEveryNMinutes <= 0 {
		return fmt.Errorf("RUN_EVERY_N_MINUTES must be positive, got %d", c.RunEveryNMinutes)
	}
	return nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{filepath.Dir(c.DBPath), c.DataCacheDir}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
