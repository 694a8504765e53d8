package parity

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/parity/market"
)

// ComparePolicy decides how backtest rows find their live price.
type ComparePolicy int

const (
	// FirstLive pairs every backtest trade with the first live trade in
	// the store, regardless of time.
	FirstLive ComparePolicy = iota
	// Windowed pairs with the same matching the Analyzer uses for drift.
	Windowed
)

func (p ComparePolicy) String() string {
	switch p {
	case FirstLive:
		return "first-live"
	case Windowed:
		return "windowed"
	}
	return fmt.Sprintf("ComparePolicy(%d)", int(p))
}

func ParseComparePolicy(s string) (ComparePolicy, error) {
	switch s {
	case "", "first-live":
		return FirstLive, nil
	case "windowed":
		return Windowed, nil
	}
	return FirstLive, fmt.Errorf("unknown compare policy %q", s)
}

// Row is one line of the backtest vs live price comparison.
type Row struct {
	Backtest market.Trade
	Live     *market.Trade

	// Delta is (live - backtest) / backtest * 100 on entry prices. Only
	// meaningful when HasDelta is set.
	Delta    decimal.Decimal
	HasDelta bool

	// InWindow reports whether Live is within the analyzer tolerance of
	// Backtest. Rows paired by FirstLive may be outside it.
	InWindow bool
}

// DeltaString renders Delta with four decimals, or "N/A".
func (r Row) DeltaString() string {
	if !r.HasDelta {
		return "N/A"
	}
	return r.Delta.StringFixed(4)
}

// LivePrice renders the live entry price, or "..." while there is none.
func (r Row) LivePrice() string {
	if r.Live == nil {
		return "..."
	}
	return decimal.NewFromFloat(r.Live.EntryPrice).String()
}

// Compare builds one row per backtest trade, paired with the first live
// trade in the store.
func Compare(trades []market.Trade) []Row {
	return NewAnalyzer().Compare(trades, FirstLive)
}

func (a *Analyzer) Compare(trades []market.Trade, policy ComparePolicy) []Row {
	bt := market.Filter(trades, market.Backtest)
	lv := market.Filter(trades, market.Live)
	tol := a.tolerance()

	rows := make([]Row, 0, len(bt))
	for _, b := range bt {
		row := Row{Backtest: b}

		var (
			live market.Trade
			ok   bool
		)
		switch policy {
		case Windowed:
			live, ok = a.match(b, lv)
		default:
			if len(lv) > 0 {
				live, ok = lv[0], true
			}
		}

		if ok {
			l := live
			row.Live = &l
			row.InWindow = gap(b, l) < tol
			row.Delta, row.HasDelta = delta(b.EntryPrice, l.EntryPrice)
		}
		rows = append(rows, row)
	}
	return rows
}

// delta is the percentage move from bt to lv. A zero backtest price has no
// defined delta.
func delta(bt, lv float64) (decimal.Decimal, bool) {
	b := decimal.NewFromFloat(bt)
	if b.IsZero() {
		return decimal.Zero, false
	}
	l := decimal.NewFromFloat(lv)
	return l.Sub(b).Div(b).Mul(decimal.NewFromInt(100)), true
}
