package trader

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tradefloor/internal/account"
	"tradefloor/internal/market"
	"tradefloor/internal/notify"
	"tradefloor/internal/storage"
	"tradefloor/internal/trace"
)

func newTestTrader(t *testing.T) (*Trader, *account.Service, *storage.Store) {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := zap.NewNop()
	mkt := market.NewSimulatedService(logger)
	accounts := account.NewService(store, mkt, 10_000)
	tracer := trace.NewTracer(store)
	pusher := notify.NewPusher("", "", logger)

	persona := Personas()[0] // Warren
	return New(persona, accounts, mkt, nil, pusher, tracer, logger), accounts, store
}

func TestRunTradeCycle(t *testing.T) {
	tr, accounts, store := newTestTrader(t)
	ctx := context.Background()

	require.NoError(t, tr.Run(ctx))

	acct, err := accounts.Get(ctx, tr.Name())
	require.NoError(t, err)

	// The first cycle trades: simulated prices are always affordable, so
	// the value strategy opens its first position.
	assert.NotEmpty(t, acct.Holdings)
	require.Len(t, acct.Transactions, 1)
	assert.Positive(t, acct.Transactions[0].Quantity)
	assert.NotEmpty(t, acct.Transactions[0].Rationale)

	// The strategy was seeded and a value point recorded.
	assert.NotEmpty(t, acct.Strategy)
	assert.NotEmpty(t, acct.PortfolioValueSeries)

	// The session left a trace in the audit log.
	entries, err := store.ReadLog(ctx, tr.Name(), 50)
	require.NoError(t, err)
	var sawTrace bool
	for _, entry := range entries {
		if entry.Type == "trace" {
			sawTrace = true
		}
	}
	assert.True(t, sawTrace, "expected trace entries in the log")
}

func TestRunAlternatesModes(t *testing.T) {
	tr, accounts, _ := newTestTrader(t)
	ctx := context.Background()

	require.NoError(t, tr.Run(ctx)) // trade
	require.NoError(t, tr.Run(ctx)) // rebalance

	acct, err := accounts.Get(ctx, tr.Name())
	require.NoError(t, err)

	// Warren's policy never buys in rebalance mode, so the second cycle
	// adds at most sells.
	buys := 0
	for _, txn := range acct.Transactions {
		if txn.Quantity > 0 {
			buys++
		}
	}
	assert.Equal(t, 1, buys)

	// Each cycle records a value point.
	assert.GreaterOrEqual(t, len(acct.PortfolioValueSeries), 2)
}
