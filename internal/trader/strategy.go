package trader

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Side of an order.
type Side int

const (
	Buy Side = iota
	Sell
)

// Order is a proposed execution with the reasoning that produced it.
type Order struct {
	Side      Side
	Symbol    string
	Quantity  int64
	Rationale string
}

// Snapshot is everything a policy sees when deciding: account state,
// current prices for the watchlist and holdings, average cost per held
// share, and how much news coverage each symbol drew recently.
type Snapshot struct {
	Cash           decimal.Decimal
	PortfolioValue decimal.Decimal
	Holdings       map[string]int64
	Prices         map[string]decimal.Decimal
	CostBasis      map[string]decimal.Decimal
	Coverage       map[string]int
}

// Policy turns a snapshot into orders. Trade looks for new positions;
// Rebalance only adjusts what is already held.
type Policy interface {
	Trade(snap Snapshot) []Order
	Rebalance(snap Snapshot) []Order
}

// Persona is a trader identity: strategy text shown on the dashboard,
// the universe it trades, and the decision policy.
type Persona struct {
	Name      string
	Lastname  string
	Strategy  string
	Watchlist []string
	Policy    Policy
}

// Personas returns the four traders of the floor.
func Personas() []Persona {
	return []Persona{
		{
			Name:     "Warren",
			Lastname: "Patience",
			Strategy: "You are a value investor. You buy quality companies when they are cheap " +
				"relative to the rest of your universe, hold through drawdowns, and only take " +
				"profits after substantial appreciation.",
			Watchlist: []string{"AAPL", "BRK-B", "JNJ", "JPM", "KO", "PG"},
			Policy: &bandPolicy{
				cashFraction: decimal.NewFromFloat(0.20),
				maxPositions: 6,
				takeProfit:   decimal.NewFromFloat(1.30),
				pickCheapest: true,
			},
		},
		{
			Name:     "George",
			Lastname: "Bold",
			Strategy: "You are an aggressive macro trader. You take large concentrated positions " +
				"where attention is highest, cut losers quickly and let conviction ride.",
			Watchlist: []string{"GLD", "NVDA", "QQQ", "SPY", "TLT", "TSLA"},
			Policy: &bandPolicy{
				cashFraction: decimal.NewFromFloat(0.50),
				maxPositions: 3,
				takeProfit:   decimal.NewFromFloat(1.25),
				stopLoss:     decimal.NewFromFloat(0.90),
			},
		},
		{
			Name:     "Ray",
			Lastname: "Systematic",
			Strategy: "You are a systematic investor. You hold your universe at equal weights, " +
				"add to whatever is most underweight and trim whatever has drifted furthest " +
				"above target.",
			Watchlist: []string{"DBC", "EEM", "GLD", "IEF", "SPY", "VEA"},
			Policy:    &equalWeightPolicy{reserve: decimal.NewFromFloat(0.05)},
		},
		{
			Name:     "Cathie",
			Lastname: "Crypto",
			Strategy: "You invest in disruptive innovation. You buy emerging technology names and " +
				"crypto-adjacent equities, add to winners and accept volatility, but cap any " +
				"single loss.",
			Watchlist: []string{"ARKK", "COIN", "MSTR", "NVDA", "PLTR", "SQ"},
			Policy: &bandPolicy{
				cashFraction: decimal.NewFromFloat(0.35),
				maxPositions: 5,
				takeProfit:   decimal.NewFromFloat(1.60),
				stopLoss:     decimal.NewFromFloat(0.80),
				addToWinners: true,
			},
		},
	}
}

// one is the identity multiplier for band comparisons.
var one = decimal.NewFromInt(1)

// bandPolicy buys from the watchlist with a fixed fraction of cash and
// exits positions when they cross take-profit or stop-loss bands
// relative to average cost.
type bandPolicy struct {
	cashFraction decimal.Decimal
	maxPositions int
	takeProfit   decimal.Decimal // exit above cost*takeProfit; zero disables
	stopLoss     decimal.Decimal // exit below cost*stopLoss; zero disables
	pickCheapest bool            // prefer the lowest-priced candidate over the most covered
	addToWinners bool            // trade mode may add to positions above cost
}

func (p *bandPolicy) Trade(snap Snapshot) []Order {
	if len(snap.Holdings) >= p.maxPositions {
		return nil
	}

	candidates := make([]string, 0, len(snap.Prices))
	for symbol, price := range snap.Prices {
		if price.IsZero() {
			continue
		}
		if _, held := snap.Holdings[symbol]; held && !p.addToWinners {
			continue
		}
		if held := snap.Holdings[symbol] > 0; held && p.addToWinners {
			// Only add to a position trading above its average cost.
			cost, ok := snap.CostBasis[symbol]
			if !ok || price.LessThanOrEqual(cost) {
				continue
			}
		}
		candidates = append(candidates, symbol)
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if p.pickCheapest {
			if !snap.Prices[a].Equal(snap.Prices[b]) {
				return snap.Prices[a].LessThan(snap.Prices[b])
			}
		} else if snap.Coverage[a] != snap.Coverage[b] {
			return snap.Coverage[a] > snap.Coverage[b]
		}
		return a < b
	})

	symbol := candidates[0]
	qty := affordableQuantity(snap.Cash.Mul(p.cashFraction), snap.Prices[symbol])
	if qty < 1 {
		return nil
	}

	why := "most news coverage in my universe"
	if p.pickCheapest {
		why = "cheapest name in my universe"
	}
	return []Order{{
		Side:      Buy,
		Symbol:    symbol,
		Quantity:  qty,
		Rationale: fmt.Sprintf("Opening %s: %s at %s.", symbol, why, snap.Prices[symbol].StringFixed(2)),
	}}
}

func (p *bandPolicy) Rebalance(snap Snapshot) []Order {
	var orders []Order
	for _, symbol := range sortedSymbols(snap.Holdings) {
		price := snap.Prices[symbol]
		cost, ok := snap.CostBasis[symbol]
		if !ok || price.IsZero() || cost.IsZero() {
			continue
		}

		ratio := price.Div(cost)
		switch {
		case !p.takeProfit.IsZero() && ratio.GreaterThanOrEqual(p.takeProfit):
			orders = append(orders, Order{
				Side:      Sell,
				Symbol:    symbol,
				Quantity:  snap.Holdings[symbol],
				Rationale: fmt.Sprintf("Taking profit on %s at %s, up %s%% from cost.", symbol, price.StringFixed(2), percentFrom(ratio)),
			})
		case !p.stopLoss.IsZero() && ratio.LessThanOrEqual(p.stopLoss):
			orders = append(orders, Order{
				Side:      Sell,
				Symbol:    symbol,
				Quantity:  snap.Holdings[symbol],
				Rationale: fmt.Sprintf("Cutting %s at %s, down %s%% from cost.", symbol, price.StringFixed(2), percentFrom(ratio)),
			})
		}
	}
	return orders
}

// equalWeightPolicy targets equal portfolio weight for every watchlist
// symbol, keeping a small cash reserve.
type equalWeightPolicy struct {
	reserve decimal.Decimal
}

func (p *equalWeightPolicy) Trade(snap Snapshot) []Order {
	target := p.targetValue(snap)
	if target.IsZero() {
		return nil
	}

	// Most underweight priced symbol first.
	type gap struct {
		symbol string
		short  decimal.Decimal
	}
	var gaps []gap
	for symbol, price := range snap.Prices {
		if price.IsZero() {
			continue
		}
		value := price.Mul(decimal.NewFromInt(snap.Holdings[symbol]))
		if value.LessThan(target) {
			gaps = append(gaps, gap{symbol, target.Sub(value)})
		}
	}
	if len(gaps) == 0 {
		return nil
	}
	sort.Slice(gaps, func(i, j int) bool {
		if !gaps[i].short.Equal(gaps[j].short) {
			return gaps[i].short.GreaterThan(gaps[j].short)
		}
		return gaps[i].symbol < gaps[j].symbol
	})

	g := gaps[0]
	budget := decimal.Min(g.short, snap.Cash.Mul(one.Sub(p.reserve)))
	qty := affordableQuantity(budget, snap.Prices[g.symbol])
	if qty < 1 {
		return nil
	}
	return []Order{{
		Side:      Buy,
		Symbol:    g.symbol,
		Quantity:  qty,
		Rationale: fmt.Sprintf("Bringing %s toward its equal-weight target of %s.", g.symbol, target.StringFixed(2)),
	}}
}

func (p *equalWeightPolicy) Rebalance(snap Snapshot) []Order {
	target := p.targetValue(snap)
	if target.IsZero() {
		return nil
	}
	// Trim anything 50% or more above target back to target.
	limit := target.Mul(decimal.NewFromFloat(1.5))

	var orders []Order
	for _, symbol := range sortedSymbols(snap.Holdings) {
		price := snap.Prices[symbol]
		if price.IsZero() {
			continue
		}
		value := price.Mul(decimal.NewFromInt(snap.Holdings[symbol]))
		if value.LessThan(limit) {
			continue
		}
		excess := value.Sub(target)
		qty := excess.Div(price).IntPart()
		if qty < 1 || qty > snap.Holdings[symbol] {
			continue
		}
		orders = append(orders, Order{
			Side:      Sell,
			Symbol:    symbol,
			Quantity:  qty,
			Rationale: fmt.Sprintf("Trimming %s back toward its equal-weight target of %s.", symbol, target.StringFixed(2)),
		})
	}
	return orders
}

func (p *equalWeightPolicy) targetValue(snap Snapshot) decimal.Decimal {
	n := int64(len(snap.Prices))
	if n == 0 {
		return decimal.Zero
	}
	investable := snap.PortfolioValue.Mul(one.Sub(p.reserve))
	return investable.Div(decimal.NewFromInt(n))
}

// affordableQuantity is how many whole shares a budget buys, leaving
// room for the execution spread.
func affordableQuantity(budget, price decimal.Decimal) int64 {
	if price.IsZero() {
		return 0
	}
	spreadCushion := decimal.NewFromFloat(1.003)
	return budget.Div(price.Mul(spreadCushion)).IntPart()
}

func percentFrom(ratio decimal.Decimal) string {
	return ratio.Sub(one).Mul(decimal.NewFromInt(100)).Abs().StringFixed(1)
}

func sortedSymbols(holdings map[string]int64) []string {
	symbols := make([]string, 0, len(holdings))
	for symbol := range holdings {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
