package floor

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tradefloor/internal/market"
	"tradefloor/internal/trader"
)

// Floor schedules every trader concurrently on a fixed interval,
// skipping cycles while the market is closed unless configured to run
// anyway.
type Floor struct {
	traders       []*trader.Trader
	market        *market.Service
	interval      time.Duration
	runWhenClosed bool
	logger        *zap.Logger
}

func New(traders []*trader.Trader, mkt *market.Service, interval time.Duration, runWhenClosed bool, logger *zap.Logger) *Floor {
	return &Floor{
		traders:       traders,
		market:        mkt,
		interval:      interval,
		runWhenClosed: runWhenClosed,
		logger:        logger,
	}
}

// Run fires one cycle immediately, then one per interval until the
// context is cancelled. Trader errors are logged, never fatal.
func (f *Floor) Run(ctx context.Context) error {
	f.logger.Info("trading floor started",
		zap.Duration("interval", f.interval),
		zap.Int("traders", len(f.traders)),
		zap.Bool("run_when_closed", f.runWhenClosed))

	f.cycle(ctx)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			f.logger.Info("trading floor stopped")
			return ctx.Err()
		case <-ticker.C:
			f.cycle(ctx)
		}
	}
}

// RunOnce executes a single cycle regardless of market hours.
func (f *Floor) RunOnce(ctx context.Context) {
	f.run(ctx)
}

func (f *Floor) cycle(ctx context.Context) {
	if !f.runWhenClosed && !f.market.IsOpen() {
		f.logger.Info("market is closed, skipping cycle")
		return
	}
	f.run(ctx)
}

func (f *Floor) run(ctx context.Context) {
	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for _, t := range f.traders {
		t := t
		g.Go(func() error {
			if err := t.Run(ctx); err != nil {
				f.logger.Error("trader cycle failed", zap.String("trader", t.Name()), zap.Error(err))
			}
			// One trader failing must not cancel the others.
			return nil
		})
	}
	g.Wait()
	f.logger.Info("cycle complete", zap.Duration("took", time.Since(start)))
}
