package trader

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradefloor/internal/account"
	"tradefloor/internal/market"
	"tradefloor/internal/news"
	"tradefloor/internal/notify"
	"tradefloor/internal/trace"
)

const headlinesPerSymbol = 5

// Trader runs one persona over its account. Invocations alternate
// between trade mode, which researches the watchlist and opens
// positions, and rebalance mode, which only adjusts existing holdings.
type Trader struct {
	persona  Persona
	accounts *account.Service
	market   *market.Service
	research *news.Client // nil disables research
	pusher   *notify.Pusher
	tracer   *trace.Tracer
	logger   *zap.Logger

	mu      sync.Mutex
	doTrade bool
}

func New(persona Persona, accounts *account.Service, mkt *market.Service, research *news.Client, pusher *notify.Pusher, tracer *trace.Tracer, logger *zap.Logger) *Trader {
	return &Trader{
		persona:  persona,
		accounts: accounts,
		market:   mkt,
		research: research,
		pusher:   pusher,
		tracer:   tracer,
		logger:   logger.With(zap.String("trader", persona.Name)),
		doTrade:  true,
	}
}

// Name is the trader's first name, which is also its account name.
func (t *Trader) Name() string { return t.persona.Name }

// Run executes one cycle. The mode toggles whether or not the cycle
// succeeds, so a failing trader still alternates.
func (t *Trader) Run(ctx context.Context) error {
	t.mu.Lock()
	doTrade := t.doTrade
	t.doTrade = !t.doTrade
	t.mu.Unlock()

	mode := "rebalancing"
	if doTrade {
		mode = "trading"
	}

	traceID := trace.NewTraceID(t.persona.Name)
	span := t.tracer.StartTrace(ctx, traceID, mode)
	err := t.runCycle(ctx, traceID, doTrade)
	span.End(ctx, err)
	if err != nil {
		return fmt.Errorf("%s cycle for %s: %w", mode, t.persona.Name, err)
	}
	return nil
}

func (t *Trader) runCycle(ctx context.Context, traceID string, doTrade bool) error {
	acct, err := t.accounts.Get(ctx, t.persona.Name)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if acct.Strategy == "" {
		if err := acct.ChangeStrategy(ctx, t.persona.Strategy); err != nil {
			return fmt.Errorf("seed strategy: %w", err)
		}
	}

	snap, err := t.snapshot(ctx, traceID, acct, doTrade)
	if err != nil {
		return err
	}

	var orders []Order
	if doTrade {
		orders = t.persona.Policy.Trade(snap)
	} else {
		orders = t.persona.Policy.Rebalance(snap)
	}
	executed := t.execute(ctx, traceID, acct, orders)

	// Refresh the report so the value series gets a point every cycle.
	if _, err := acct.Report(ctx); err != nil {
		t.logger.Warn("report failed", zap.Error(err))
	}

	t.notifySummary(ctx, doTrade, executed)
	return nil
}

// snapshot gathers prices for the watchlist and current holdings, the
// average cost of each held symbol and, in trade mode, headline counts.
func (t *Trader) snapshot(ctx context.Context, traceID string, acct *account.Account, doTrade bool) (Snapshot, error) {
	universe := make(map[string]struct{}, len(t.persona.Watchlist)+len(acct.Holdings))
	if doTrade {
		for _, symbol := range t.persona.Watchlist {
			universe[symbol] = struct{}{}
		}
	}
	for symbol := range acct.Holdings {
		universe[symbol] = struct{}{}
	}

	snap := Snapshot{
		Cash:      acct.Balance,
		Holdings:  make(map[string]int64, len(acct.Holdings)),
		Prices:    make(map[string]decimal.Decimal, len(universe)),
		CostBasis: costBasis(acct.Transactions),
		Coverage:  make(map[string]int),
	}
	for symbol, qty := range acct.Holdings {
		snap.Holdings[symbol] = qty
	}

	span := t.tracer.StartSpan(ctx, traceID, "function", "get_share_price")
	for symbol := range universe {
		price, err := t.market.SharePrice(ctx, symbol)
		if err != nil {
			span.End(ctx, err)
			return Snapshot{}, fmt.Errorf("price %s: %w", symbol, err)
		}
		snap.Prices[symbol] = price
	}
	span.End(ctx, nil)

	value, err := acct.PortfolioValue(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("portfolio value: %w", err)
	}
	snap.PortfolioValue = value

	if doTrade && t.research != nil {
		session := t.tracer.StartSpan(ctx, traceID, "agent", "Researcher")
		for _, symbol := range t.persona.Watchlist {
			span := t.tracer.StartSpan(ctx, traceID, "function", "fetch_news "+symbol)
			headlines, err := t.research.SymbolNews(ctx, symbol, headlinesPerSymbol)
			span.End(ctx, err)
			if err != nil {
				// Research is advisory. Trade without it.
				t.logger.Debug("research failed", zap.String("symbol", symbol), zap.Error(err))
				continue
			}
			snap.Coverage[symbol] = len(headlines)
		}
		session.End(ctx, nil)
	}

	return snap, nil
}

// execute places each order, tolerating per-order failures, and
// returns human-readable lines for the ones that went through.
func (t *Trader) execute(ctx context.Context, traceID string, acct *account.Account, orders []Order) []string {
	var executed []string
	for _, order := range orders {
		var (
			label = "buy_shares"
			verb  = "Bought"
			err   error
		)
		if order.Side == Sell {
			label = "sell_shares"
			verb = "Sold"
		}

		span := t.tracer.StartSpan(ctx, traceID, "function", label)
		if order.Side == Buy {
			_, err = acct.BuyShares(ctx, order.Symbol, order.Quantity, order.Rationale)
		} else {
			_, err = acct.SellShares(ctx, order.Symbol, order.Quantity, order.Rationale)
		}
		span.End(ctx, err)

		if err != nil {
			t.logger.Warn("order rejected",
				zap.String("symbol", order.Symbol),
				zap.Int64("quantity", order.Quantity),
				zap.Error(err))
			continue
		}
		executed = append(executed, fmt.Sprintf("%s %d %s", verb, order.Quantity, order.Symbol))
	}
	return executed
}

func (t *Trader) notifySummary(ctx context.Context, doTrade bool, executed []string) {
	if t.pusher == nil || !t.pusher.Enabled() {
		return
	}
	mode := "Rebalance"
	if doTrade {
		mode = "Trade"
	}
	message := "No orders this cycle."
	if len(executed) > 0 {
		message = strings.Join(executed, "; ") + "."
	}
	t.pusher.Push(ctx, fmt.Sprintf("%s cycle: %s", mode, t.persona.Name), message)
}

// costBasis computes the average cost per share still held, walking
// the transaction history with signed quantities.
func costBasis(transactions []account.Transaction) map[string]decimal.Decimal {
	shares := make(map[string]decimal.Decimal)
	spent := make(map[string]decimal.Decimal)
	for _, txn := range transactions {
		qty := decimal.NewFromInt(txn.Quantity)
		if txn.Quantity > 0 {
			shares[txn.Symbol] = shares[txn.Symbol].Add(qty)
			spent[txn.Symbol] = spent[txn.Symbol].Add(txn.Price.Mul(qty))
			continue
		}
		// A sale releases cost proportionally to shares sold.
		held := shares[txn.Symbol]
		if held.IsZero() {
			continue
		}
		sold := qty.Abs()
		spent[txn.Symbol] = spent[txn.Symbol].Sub(spent[txn.Symbol].Mul(sold).Div(held))
		shares[txn.Symbol] = held.Sub(sold)
	}

	basis := make(map[string]decimal.Decimal, len(shares))
	for symbol, held := range shares {
		if held.IsPositive() {
			basis[symbol] = spent[symbol].Div(held)
		}
	}
	return basis
}
