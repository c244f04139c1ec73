package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tradefloor/internal/config"
	"tradefloor/internal/logging"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	// Initialize configuration early
	cfg := config.DefaultConfig()
	var logger *zap.Logger

	rootCmd := &cobra.Command{
		Use:   "tradefloor",
		Short: "tradefloor - Autonomous Trading Floor",
		Long: `tradefloor runs a simulated trading floor where four autonomous traders
manage their own portfolios on a schedule: researching headlines, buying and
selling against live or simulated market data, and recording every move to a
local SQLite database a dashboard can read.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("failed to create directories: %w", err)
			}
			var err error
			logger, err = logging.New(cfg.Debug)
			if err != nil {
				return err
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default behavior: run the floor with the dashboard attached
			return runFloor(cmd.Context(), cfg, logger, true, false)
		},
	}

	rootCmd.AddCommand(newRunCmd(cfg, &logger))
	rootCmd.AddCommand(newDashboardCmd(cfg, &logger))
	rootCmd.AddCommand(newAccountCmd(cfg, &logger))
	rootCmd.AddCommand(newResetCmd(cfg, &logger))
	rootCmd.AddCommand(newConfigCmd(cfg))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// newRunCmd creates the run command
func newRunCmd(cfg *config.Config, logger **zap.Logger) *cobra.Command {
	var withDashboard bool
	var once bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the trading floor scheduler",
		Long: `Start the trading floor: every trader runs one cycle immediately and then
once per interval, skipping cycles while the market is closed unless
RUN_EVEN_WHEN_MARKET_IS_CLOSED is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFloor(cmd.Context(), cfg, *logger, withDashboard, once)
		},
	}

	cmd.Flags().BoolVar(&withDashboard, "dashboard", true, "Serve the dashboard API alongside the floor")
	cmd.Flags().BoolVar(&once, "once", false, "Run a single cycle and exit, ignoring market hours")

	return cmd
}

func runFloor(ctx context.Context, cfg *config.Config, logger *zap.Logger, withDashboard, once bool) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	app, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	DisplayWelcomeBanner()
	fmt.Printf("🏦 %d traders, one cycle every %d minutes\n\n", len(app.traders), cfg.RunEveryNMinutes)

	tradingFloor := app.floor()
	if once {
		tradingFloor.RunOnce(ctx)
		return nil
	}

	if withDashboard {
		server := app.dashboard()
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("start dashboard: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
		fmt.Printf("📊 Dashboard API on %s\n\n", cfg.DashboardAddr)
	}

	if err := tradingFloor.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// newDashboardCmd creates the dashboard command
func newDashboardCmd(cfg *config.Config, logger **zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Serve only the dashboard API",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cfg, *logger)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := app.dashboard()
			if err := server.Start(ctx); err != nil {
				return fmt.Errorf("start dashboard: %w", err)
			}
			fmt.Printf("📊 Dashboard API on %s (Ctrl-C to stop)\n", cfg.DashboardAddr)

			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}

// newAccountCmd creates the account command
func newAccountCmd(cfg *config.Config, logger **zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "account [NAME]",
		Short: "Show a trader's account",
		Long:  "Display a trader's portfolio, holdings and recent activity. Prompts for the trader when NAME is omitted.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cfg, *logger)
			if err != nil {
				return err
			}
			defer app.Close()

			name := ""
			if len(args) == 1 {
				name = args[0]
			} else {
				name, err = PromptForTrader(app.personas)
				if err != nil {
					return err
				}
			}

			return showAccount(cmd.Context(), app, name)
		},
	}
}

// newResetCmd creates the reset command
func newResetCmd(cfg *config.Config, logger **zap.Logger) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset every trader to a fresh account",
		Long:  "Wipe balances, holdings and transaction history, and restore each trader's starting strategy. This cannot be undone.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				confirmed, err := ConfirmReset()
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Println("Reset cancelled.")
					return nil
				}
			}

			app, err := newApp(cfg, *logger)
			if err != nil {
				return err
			}
			defer app.Close()

			for _, persona := range app.personas {
				acct, err := app.accounts.Get(cmd.Context(), persona.Name)
				if err != nil {
					return fmt.Errorf("load %s: %w", persona.Name, err)
				}
				if err := acct.Reset(cmd.Context(), persona.Strategy); err != nil {
					return fmt.Errorf("reset %s: %w", persona.Name, err)
				}
				fmt.Printf("✅ Reset %s %s\n", persona.Name, persona.Lastname)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

// newConfigCmd creates the config command
func newConfigCmd(cfg *config.Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "Manage trading floor configuration settings",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			showConfig(cfg)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(cfg)
		},
	})

	return configCmd
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("tradefloor v1.0.0")
			fmt.Println("Autonomous Trading Floor Simulation")
		},
	}
}

// showConfig displays the current configuration
func showConfig(cfg *config.Config) {
	fmt.Println("📋 Current Trading Floor Configuration:")
	fmt.Println("═══════════════════════════════════════")
	fmt.Printf("Project Directory:    %s\n", cfg.ProjectDir)
	fmt.Printf("Database:             %s\n", cfg.DBPath)
	fmt.Printf("Cache Directory:      %s\n", cfg.DataCacheDir)
	fmt.Println()
	fmt.Printf("Run Interval:         every %d minutes\n", cfg.RunEveryNMinutes)
	fmt.Printf("Run When Closed:      %t\n", cfg.RunWhenMarketIsClosed)
	fmt.Printf("Initial Balance:      %.2f\n", cfg.InitialBalance)
	fmt.Println()
	fmt.Printf("Market Data Plan:     %s\n", cfg.MarketDataPlan)
	fmt.Printf("Cache Enabled:        %t\n", cfg.CacheEnabled)
	fmt.Printf("Debug Mode:           %t\n", cfg.Debug)
	fmt.Printf("Dashboard Address:    %s\n", cfg.DashboardAddr)
	fmt.Println()

	fmt.Println("🔌 API Configuration:")
	fmt.Println("─────────────────────")
	if cfg.FinnhubAPIKey != "" {
		fmt.Println("Finnhub API:          ✅ Configured")
	} else {
		fmt.Println("Finnhub API:          ❌ Not configured")
	}

	if cfg.LongportAppKey != "" && cfg.LongportAppSecret != "" && cfg.LongportAccessToken != "" {
		fmt.Println("Longport API:         ✅ Configured")
	} else {
		fmt.Println("Longport API:         ❌ Not configured")
	}

	if cfg.PushoverToken != "" && cfg.PushoverUser != "" {
		fmt.Println("Pushover:             ✅ Configured")
	} else {
		fmt.Println("Pushover:             ❌ Not configured")
	}
}

// validateConfig validates the configuration and dependencies
func validateConfig(cfg *config.Config) error {
	fmt.Println("🔍 Validating Trading Floor Configuration...")
	fmt.Println("═══════════════════════════════════════")

	fmt.Print("📁 Checking directories... ")
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Println("❌")
		return fmt.Errorf("directory validation failed: %w", err)
	}
	fmt.Println("✅")

	fmt.Print("⚙️  Checking configuration values... ")
	if err := cfg.Validate(); err != nil {
		fmt.Println("❌")
		return err
	}
	fmt.Println("✅")

	fmt.Print("🔑 Checking API keys... ")
	warnings := configWarnings(cfg)

	if len(warnings) > 0 {
		fmt.Println("⚠️")
		for _, warning := range warnings {
			fmt.Printf("  ⚠️  %s\n", warning)
		}
	} else {
		fmt.Println("✅")
	}

	fmt.Println()
	if len(warnings) == 0 {
		fmt.Println("✅ Configuration validation completed successfully!")
	} else {
		fmt.Printf("⚠️  Configuration validation completed with %d warnings.\n", len(warnings))
		fmt.Println("Some features may be limited without proper API configuration.")
	}

	fmt.Println()
	fmt.Println("💡 Tips:")
	fmt.Println("  • Set MARKET_DATA_PLAN to eod, delayed, or realtime")
	fmt.Println("  • Set FINNHUB_API_KEY for delayed quotes")
	fmt.Println("  • Set PUSHOVER_TOKEN and PUSHOVER_USER for trade notifications")

	return nil
}

// configWarnings lists non-fatal configuration gaps. Missing keys the
// active plan requires are Validate errors, not warnings.
func configWarnings(cfg *config.Config) []string {
	warnings := []string{}

	if cfg.MarketDataPlan != config.PlanDelayed && cfg.FinnhubAPIKey == "" {
		warnings = append(warnings, "Finnhub API key not configured; switching to the delayed plan will require it")
	}
	if cfg.PushoverToken == "" || cfg.PushoverUser == "" {
		warnings = append(warnings, "Pushover credentials not configured; push notifications disabled")
	}

	return warnings
}

// showAccount prints one trader's portfolio and recent activity.
func showAccount(ctx context.Context, app *app, name string) error {
	acct, err := app.accounts.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	value, err := acct.PortfolioValue(ctx)
	if err != nil {
		return fmt.Errorf("portfolio value: %w", err)
	}

	DisplayAccountSummary(acct, value, acct.ProfitLoss(value))

	entries, err := app.store.ReadLog(ctx, name, 13)
	if err != nil {
		return fmt.Errorf("read logs: %w", err)
	}
	DisplayActivityLog(entries)
	return nil
}
