package account

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradefloor/internal/storage"
)

// stubPricer serves fixed prices; unknown symbols price at zero.
type stubPricer struct {
	prices map[string]float64
}

func (p *stubPricer) SharePrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	return decimal.NewFromFloat(p.prices[symbol]), nil
}

func newTestService(t *testing.T, prices map[string]float64) (*Service, *storage.Store) {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewService(store, &stubPricer{prices: prices}, 10_000), store
}

func TestGetCreatesFreshAccount(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	acct, err := svc.Get(ctx, "  Warren ")
	require.NoError(t, err)

	assert.Equal(t, "warren", acct.Name)
	assert.True(t, acct.Balance.Equal(decimal.NewFromInt(10_000)))
	assert.Empty(t, acct.Holdings)
	assert.Empty(t, acct.Transactions)

	// A second Get loads the persisted account rather than recreating it.
	require.NoError(t, acct.Deposit(ctx, decimal.NewFromInt(500)))
	again, err := svc.Get(ctx, "WARREN")
	require.NoError(t, err)
	assert.True(t, again.Balance.Equal(decimal.NewFromInt(10_500)))
}

func TestLookupDoesNotPersist(t *testing.T) {
	svc, store := newTestService(t, nil)
	ctx := context.Background()

	acct, err := svc.Lookup(ctx, "warren")
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(decimal.NewFromInt(10_000)))

	data, err := store.ReadAccount(ctx, "warren")
	require.NoError(t, err)
	assert.Nil(t, data, "Lookup must not create the account")

	// Once the account exists, Lookup sees the stored state.
	created, err := svc.Get(ctx, "warren")
	require.NoError(t, err)
	require.NoError(t, created.Withdraw(ctx, decimal.NewFromInt(1_000)))

	found, err := svc.Lookup(ctx, "warren")
	require.NoError(t, err)
	assert.True(t, found.Balance.Equal(decimal.NewFromInt(9_000)))
}

func TestBuySharesAppliesSpread(t *testing.T) {
	svc, _ := newTestService(t, map[string]float64{"AAPL": 100})
	ctx := context.Background()

	acct, err := svc.Get(ctx, "warren")
	require.NoError(t, err)

	out, err := acct.BuyShares(ctx, "aapl", 10, "testing the waters")
	require.NoError(t, err)
	assert.Contains(t, out, "Completed. Latest details:")

	// 10 shares at 100 * 1.002 = 1002 total.
	assert.True(t, acct.Balance.Equal(decimal.NewFromInt(8_998)), "balance was %s", acct.Balance)
	assert.Equal(t, int64(10), acct.Holdings["AAPL"])
	require.Len(t, acct.Transactions, 1)
	assert.True(t, acct.Transactions[0].Price.Equal(decimal.NewFromFloat(100.2)))
	assert.Equal(t, int64(10), acct.Transactions[0].Quantity)
}

func TestBuySharesRejections(t *testing.T) {
	svc, _ := newTestService(t, map[string]float64{"AAPL": 100})
	ctx := context.Background()

	acct, err := svc.Get(ctx, "george")
	require.NoError(t, err)

	_, err = acct.BuyShares(ctx, "AAPL", 0, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = acct.BuyShares(ctx, "NOPE", 1, "")
	assert.ErrorIs(t, err, ErrUnknownSymbol)

	_, err = acct.BuyShares(ctx, "AAPL", 1_000, "")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// Nothing changed.
	assert.True(t, acct.Balance.Equal(decimal.NewFromInt(10_000)))
	assert.Empty(t, acct.Holdings)
}

func TestSellSharesRoundTrip(t *testing.T) {
	svc, _ := newTestService(t, map[string]float64{"TSLA": 200})
	ctx := context.Background()

	acct, err := svc.Get(ctx, "cathie")
	require.NoError(t, err)

	_, err = acct.BuyShares(ctx, "TSLA", 5, "conviction buy")
	require.NoError(t, err)

	_, err = acct.SellShares(ctx, "TSLA", 6, "")
	assert.ErrorIs(t, err, ErrInsufficientHoldings)

	_, err = acct.SellShares(ctx, "TSLA", 5, "taking profits")
	require.NoError(t, err)

	// The position is gone entirely, not left at zero.
	_, held := acct.Holdings["TSLA"]
	assert.False(t, held)

	// Buy at 200.4, sell at 199.6: the round trip costs the spread.
	expected := decimal.NewFromInt(10_000).Sub(decimal.NewFromInt(4)) // 5 * 0.8
	assert.True(t, acct.Balance.Equal(expected), "balance was %s", acct.Balance)

	require.Len(t, acct.Transactions, 2)
	assert.Equal(t, int64(-5), acct.Transactions[1].Quantity)
}

func TestPortfolioValueAndProfitLoss(t *testing.T) {
	svc, _ := newTestService(t, map[string]float64{"SPY": 50})
	ctx := context.Background()

	acct, err := svc.Get(ctx, "ray")
	require.NoError(t, err)

	_, err = acct.BuyShares(ctx, "SPY", 20, "")
	require.NoError(t, err)

	value, err := acct.PortfolioValue(ctx)
	require.NoError(t, err)

	// Cash 10000 - 20*50.1 = 8998, holdings 20*50 = 1000.
	assert.True(t, value.Equal(decimal.NewFromInt(9_998)), "value was %s", value)

	// The only loss so far is the spread paid on the buy.
	pnl := acct.ProfitLoss(value)
	assert.True(t, pnl.Equal(decimal.NewFromInt(-2)), "pnl was %s", pnl)
}

func TestWithdraw(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	acct, err := svc.Get(ctx, "warren")
	require.NoError(t, err)

	require.NoError(t, acct.Withdraw(ctx, decimal.NewFromInt(4_000)))
	assert.True(t, acct.Balance.Equal(decimal.NewFromInt(6_000)))

	err = acct.Withdraw(ctx, decimal.NewFromInt(7_000))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	err = acct.Deposit(ctx, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestReportShape(t *testing.T) {
	svc, _ := newTestService(t, map[string]float64{"KO": 60})
	ctx := context.Background()

	acct, err := svc.Get(ctx, "warren")
	require.NoError(t, err)
	_, err = acct.BuyShares(ctx, "KO", 10, "")
	require.NoError(t, err)

	rep, err := acct.Report(ctx)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(rep), &decoded))
	for _, key := range []string{
		"name", "balance", "strategy", "holdings", "transactions",
		"portfolio_value_time_series", "total_portfolio_value", "total_profit_loss",
	} {
		assert.Contains(t, decoded, key)
	}

	// Each report appends a point to the value series.
	before := len(acct.PortfolioValueSeries)
	_, err = acct.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, len(acct.PortfolioValueSeries))
}

func TestResetAndStrategy(t *testing.T) {
	svc, store := newTestService(t, map[string]float64{"JPM": 150})
	ctx := context.Background()

	acct, err := svc.Get(ctx, "warren")
	require.NoError(t, err)
	_, err = acct.BuyShares(ctx, "JPM", 3, "")
	require.NoError(t, err)

	require.NoError(t, acct.Reset(ctx, "buy low, sell high"))
	assert.True(t, acct.Balance.Equal(decimal.NewFromInt(10_000)))
	assert.Empty(t, acct.Holdings)
	assert.Empty(t, acct.Transactions)
	assert.Equal(t, "buy low, sell high", acct.GetStrategy(ctx))

	require.NoError(t, acct.ChangeStrategy(ctx, "hold forever"))
	reloaded, err := svc.Get(ctx, "warren")
	require.NoError(t, err)
	assert.Equal(t, "hold forever", reloaded.Strategy)

	// Account operations leave an audit trail.
	entries, err := store.ReadLog(ctx, "warren", 50)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}
