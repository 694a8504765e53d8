// Package parity derives the agreement between the backtest and live trade
// streams of a run: how often the live engine traded the same direction and
// how far its entries drifted in time.
package parity

import (
	"fmt"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/parity/market"
)

// DefaultTolerance is the widest entry-time gap for which a live trade still
// counts as the counterpart of a backtest trade.
const DefaultTolerance = 5 * time.Second

// Policy chooses which live trade a backtest trade is paired with when
// measuring drift.
type Policy int

const (
	// FirstWithin takes the first live trade in store order whose gap is
	// strictly below the tolerance.
	FirstWithin Policy = iota
	// Nearest takes the live trade with the smallest gap below the
	// tolerance. Ties go to the earlier one in store order.
	Nearest
)

func (p Policy) String() string {
	switch p {
	case FirstWithin:
		return "first"
	case Nearest:
		return "nearest"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy accepts the names printed by String.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "first":
		return FirstWithin, nil
	case "nearest":
		return Nearest, nil
	}
	return FirstWithin, fmt.Errorf("unknown match policy %q", s)
}

// Stats summarises one trade store.
type Stats struct {
	BTCount int
	LVCount int

	// DirMatch is the percentage of backtest trades for which some live
	// trade has the same direction. 0 without backtest trades.
	DirMatch float64

	// AvgDrift is the mean entry-time gap in whole milliseconds over the
	// matched pairs, "0" when nothing matched.
	AvgDrift string

	// Matched is the number of backtest trades that found a live
	// counterpart within the tolerance.
	Matched int
}

type Analyzer struct {
	Tolerance time.Duration
	Policy    Policy
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{Tolerance: DefaultTolerance, Policy: FirstWithin}
}

// Analyze computes Stats with the default tolerance and policy.
func Analyze(trades []market.Trade) Stats {
	return NewAnalyzer().Analyze(trades)
}

// Analyze never fails: trades with an unknown source are ignored and an
// empty store yields zero values.
func (a *Analyzer) Analyze(trades []market.Trade) Stats {
	bt := market.Filter(trades, market.Backtest)
	lv := market.Filter(trades, market.Live)

	st := Stats{BTCount: len(bt), LVCount: len(lv), AvgDrift: "0"}
	if len(bt) == 0 {
		return st
	}

	dirMatches := 0
	var drifts stats.Float64Data
	for _, b := range bt {
		if hasDirection(lv, b.Direction) {
			dirMatches++
		}
		if l, ok := a.match(b, lv); ok {
			drifts = append(drifts, float64(gap(b, l)))
		}
	}

	st.DirMatch = float64(dirMatches) / float64(len(bt)) * 100
	st.Matched = len(drifts)
	if len(drifts) > 0 {
		mean, err := stats.Mean(drifts)
		if err == nil {
			st.AvgDrift = decimal.NewFromFloat(mean).StringFixed(0)
		}
	}
	return st
}

func (a *Analyzer) tolerance() int64 {
	if a.Tolerance <= 0 {
		return DefaultTolerance.Milliseconds()
	}
	return a.Tolerance.Milliseconds()
}

// match finds the live counterpart of b under the analyzer's policy.
func (a *Analyzer) match(b market.Trade, lv []market.Trade) (market.Trade, bool) {
	tol := a.tolerance()

	best := -1
	for i, l := range lv {
		g := gap(b, l)
		if g >= tol {
			continue
		}
		if a.Policy == FirstWithin {
			return l, true
		}
		if best < 0 || g < gap(b, lv[best]) {
			best = i
		}
	}
	if best < 0 {
		return market.Trade{}, false
	}
	return lv[best], true
}

func hasDirection(trades []market.Trade, d market.Direction) bool {
	for _, t := range trades {
		if t.Direction == d {
			return true
		}
	}
	return false
}

// gap is the absolute entry-time difference in milliseconds.
func gap(a, b market.Trade) int64 {
	d := b.Timestamp - a.Timestamp
	if d < 0 {
		return -d
	}
	return d
}
