// Package account implements paper-trading account bookkeeping: cash
// balance, share holdings, transaction history and portfolio valuation,
// persisted as JSON rows through the storage layer.
package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tradefloor/internal/storage"
)

// Spread applied on every execution: buys pay 0.2% above the quoted
// price, sells receive 0.2% below it.
var spread = decimal.NewFromFloat(0.002)

var (
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrUnknownSymbol        = errors.New("unrecognized symbol")
	ErrInsufficientHoldings = errors.New("not enough shares held")
)

const timestampLayout = "2006-01-02 15:04:05"

// Pricer resolves the current share price for a symbol. A zero price
// means the symbol is unknown.
type Pricer interface {
	SharePrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Transaction is a single buy (positive quantity) or sell (negative
// quantity) execution. Price already includes the spread.
type Transaction struct {
	Symbol    string          `json:"symbol"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Timestamp string          `json:"timestamp"`
	Rationale string          `json:"rationale"`
}

// Total is the signed cash flow of the transaction.
func (t Transaction) Total() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}

func (t Transaction) String() string {
	qty := t.Quantity
	if qty < 0 {
		qty = -qty
	}
	return fmt.Sprintf("%d shares of %s at %s each.", qty, t.Symbol, t.Price.String())
}

// ValuePoint is one sample of the portfolio value time series.
type ValuePoint struct {
	Timestamp string          `json:"timestamp"`
	Value     decimal.Decimal `json:"value"`
}

// Account is a trader's full persisted state. Names are stored lowercase.
type Account struct {
	Name                 string           `json:"name"`
	Balance              decimal.Decimal  `json:"balance"`
	Strategy             string           `json:"strategy"`
	Holdings             map[string]int64 `json:"holdings"`
	Transactions         []Transaction    `json:"transactions"`
	PortfolioValueSeries []ValuePoint     `json:"portfolio_value_time_series"`

	svc *Service
}

// report is the wire shape of Report: the account plus derived totals.
type report struct {
	Account
	TotalPortfolioValue decimal.Decimal `json:"total_portfolio_value"`
	TotalProfitLoss     decimal.Decimal `json:"total_profit_loss"`
}

// Service loads and creates accounts against a store and a price source.
type Service struct {
	store          *storage.Store
	prices         Pricer
	initialBalance decimal.Decimal
	now            func() time.Time
}

func NewService(store *storage.Store, prices Pricer, initialBalance float64) *Service {
	return &Service{
		store:          store,
		prices:         prices,
		initialBalance: decimal.NewFromFloat(initialBalance),
		now:            time.Now,
	}
}

// Get loads an account by name, creating and persisting a fresh one with
// the initial balance when it does not exist yet.
func (s *Service) Get(ctx context.Context, name string) (*Account, error) {
	acct, fresh, err := s.load(ctx, name)
	if err != nil {
		return nil, err
	}
	if fresh {
		if err := acct.Save(ctx); err != nil {
			return nil, err
		}
	}
	return acct, nil
}

// Lookup loads an account like Get but never writes: a missing account
// comes back as a fresh snapshot that is not persisted. Read-only
// consumers use this so a lookup cannot race a trader's save.
func (s *Service) Lookup(ctx context.Context, name string) (*Account, error) {
	acct, _, err := s.load(ctx, name)
	return acct, err
}

func (s *Service) load(ctx context.Context, name string) (*Account, bool, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, false, fmt.Errorf("account name is required")
	}

	data, err := s.store.ReadAccount(ctx, name)
	if err != nil {
		return nil, false, err
	}

	acct := &Account{svc: s}
	if data == nil {
		acct.Name = name
		acct.Balance = s.initialBalance
		acct.Holdings = map[string]int64{}
		acct.Transactions = []Transaction{}
		acct.PortfolioValueSeries = []ValuePoint{}
		return acct, true, nil
	}

	if err := json.Unmarshal(data, acct); err != nil {
		return nil, false, fmt.Errorf("decode account %s: %w", name, err)
	}
	if acct.Holdings == nil {
		acct.Holdings = map[string]int64{}
	}
	return acct, false, nil
}

// Save persists the current state of the account.
func (a *Account) Save(ctx context.Context) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode account %s: %w", a.Name, err)
	}
	return a.svc.store.WriteAccount(ctx, a.Name, data)
}

// Reset restores the account to its initial state with a new strategy.
func (a *Account) Reset(ctx context.Context, strategy string) error {
	a.Balance = a.svc.initialBalance
	a.Strategy = strategy
	a.Holdings = map[string]int64{}
	a.Transactions = []Transaction{}
	a.PortfolioValueSeries = []ValuePoint{}
	return a.Save(ctx)
}

// Deposit adds funds to the account.
func (a *Account) Deposit(ctx context.Context, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	a.Balance = a.Balance.Add(amount)
	return a.Save(ctx)
}

// Withdraw removes funds, refusing to let the balance go negative.
func (a *Account) Withdraw(ctx context.Context, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(a.Balance) {
		return fmt.Errorf("withdraw %s: %w", amount.String(), ErrInsufficientFunds)
	}
	a.Balance = a.Balance.Sub(amount)
	return a.Save(ctx)
}

// BuyShares executes a buy at the current price plus spread and returns
// the post-trade account report.
func (a *Account) BuyShares(ctx context.Context, symbol string, quantity int64, rationale string) (string, error) {
	if quantity <= 0 {
		return "", fmt.Errorf("buy %d shares: %w", quantity, ErrInvalidAmount)
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	price, err := a.svc.prices.SharePrice(ctx, symbol)
	if err != nil {
		return "", fmt.Errorf("price %s: %w", symbol, err)
	}
	if price.IsZero() {
		return "", fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}

	buyPrice := price.Mul(decimal.NewFromInt(1).Add(spread))
	totalCost := buyPrice.Mul(decimal.NewFromInt(quantity))
	if totalCost.GreaterThan(a.Balance) {
		return "", fmt.Errorf("buy %d %s for %s: %w", quantity, symbol, totalCost.StringFixed(2), ErrInsufficientFunds)
	}

	a.Holdings[symbol] += quantity
	a.Transactions = append(a.Transactions, Transaction{
		Symbol:    symbol,
		Quantity:  quantity,
		Price:     buyPrice,
		Timestamp: a.svc.now().Format(timestampLayout),
		Rationale: rationale,
	})
	a.Balance = a.Balance.Sub(totalCost)

	if err := a.Save(ctx); err != nil {
		return "", err
	}
	a.log(ctx, fmt.Sprintf("Bought %d of %s", quantity, symbol))

	rep, err := a.Report(ctx)
	if err != nil {
		return "", err
	}
	return "Completed. Latest details:\n" + rep, nil
}

// SellShares executes a sell at the current price minus spread and
// returns the post-trade account report.
func (a *Account) SellShares(ctx context.Context, symbol string, quantity int64, rationale string) (string, error) {
	if quantity <= 0 {
		return "", fmt.Errorf("sell %d shares: %w", quantity, ErrInvalidAmount)
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	if a.Holdings[symbol] < quantity {
		return "", fmt.Errorf("sell %d of %s with %d held: %w", quantity, symbol, a.Holdings[symbol], ErrInsufficientHoldings)
	}

	price, err := a.svc.prices.SharePrice(ctx, symbol)
	if err != nil {
		return "", fmt.Errorf("price %s: %w", symbol, err)
	}

	sellPrice := price.Mul(decimal.NewFromInt(1).Sub(spread))
	proceeds := sellPrice.Mul(decimal.NewFromInt(quantity))

	a.Holdings[symbol] -= quantity
	if a.Holdings[symbol] == 0 {
		delete(a.Holdings, symbol)
	}
	a.Transactions = append(a.Transactions, Transaction{
		Symbol:    symbol,
		Quantity:  -quantity,
		Price:     sellPrice,
		Timestamp: a.svc.now().Format(timestampLayout),
		Rationale: rationale,
	})
	a.Balance = a.Balance.Add(proceeds)

	if err := a.Save(ctx); err != nil {
		return "", err
	}
	a.log(ctx, fmt.Sprintf("Sold %d of %s", quantity, symbol))

	rep, err := a.Report(ctx)
	if err != nil {
		return "", err
	}
	return "Completed. Latest details:\n" + rep, nil
}

// PortfolioValue is cash plus the market value of all holdings.
func (a *Account) PortfolioValue(ctx context.Context) (decimal.Decimal, error) {
	total := a.Balance
	for symbol, quantity := range a.Holdings {
		price, err := a.svc.prices.SharePrice(ctx, symbol)
		if err != nil {
			return decimal.Zero, fmt.Errorf("price %s: %w", symbol, err)
		}
		total = total.Add(price.Mul(decimal.NewFromInt(quantity)))
	}
	return total, nil
}

// ProfitLoss is the net result since inception: the portfolio value
// minus all signed transaction flows minus remaining cash. Spread costs
// show up as negative P&L immediately after a round trip.
func (a *Account) ProfitLoss(portfolioValue decimal.Decimal) decimal.Decimal {
	spent := decimal.Zero
	for _, t := range a.Transactions {
		spent = spent.Add(t.Total())
	}
	return portfolioValue.Sub(spent).Sub(a.Balance)
}

// Report values the portfolio, appends a point to the value series,
// saves, and returns the full account state as JSON.
func (a *Account) Report(ctx context.Context) (string, error) {
	value, err := a.PortfolioValue(ctx)
	if err != nil {
		return "", err
	}
	a.PortfolioValueSeries = append(a.PortfolioValueSeries, ValuePoint{
		Timestamp: a.svc.now().Format(timestampLayout),
		Value:     value,
	})
	if err := a.Save(ctx); err != nil {
		return "", err
	}

	data, err := json.Marshal(report{
		Account:             *a,
		TotalPortfolioValue: value,
		TotalProfitLoss:     a.ProfitLoss(value),
	})
	if err != nil {
		return "", fmt.Errorf("encode report for %s: %w", a.Name, err)
	}
	a.log(ctx, "Retrieved account details")
	return string(data), nil
}

// GetStrategy returns the current strategy text.
func (a *Account) GetStrategy(ctx context.Context) string {
	a.log(ctx, "Retrieved strategy")
	return a.Strategy
}

// ChangeStrategy replaces the strategy text and persists it.
func (a *Account) ChangeStrategy(ctx context.Context, strategy string) error {
	a.Strategy = strategy
	if err := a.Save(ctx); err != nil {
		return err
	}
	a.log(ctx, "Changed strategy")
	return nil
}

// Audit failures must not fail the trade that triggered them.
func (a *Account) log(ctx context.Context, message string) {
	_ = a.svc.store.WriteLog(ctx, a.Name, "account", message)
}
