package market

import "time"

// Direction is the side of a trade entry.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// Sign is +1 for BUY and -1 for SELL.
func (d Direction) Sign() int {
	if d == Sell {
		return -1
	}
	return 1
}

// Source tags which engine produced a trade. It is fixed at creation.
type Source string

const (
	Backtest Source = "backtest"
	Live     Source = "live"
)

// Sources lists every provenance tag in export order.
var Sources = []Source{Backtest, Live}

func (s Source) Valid() bool {
	return s == Backtest || s == Live
}

type Status string

const (
	Open   Status = "OPEN"
	Closed Status = "CLOSED"
)

// Trade is one executed trade from either the backtest or the live engine.
// Timestamp is the entry time in epoch milliseconds.
type Trade struct {
	ID         string    `json:"id" yaml:"id"`
	Timestamp  int64     `json:"timestamp" yaml:"timestamp"`
	Symbol     string    `json:"symbol" yaml:"symbol"`
	Direction  Direction `json:"direction" yaml:"direction"`
	EntryPrice float64   `json:"entryPrice" yaml:"entry_price"`
	ExitPrice  *float64  `json:"exitPrice,omitempty" yaml:"exit_price,omitempty"`
	PnL        *float64  `json:"pnl,omitempty" yaml:"pnl,omitempty"`
	Source     Source    `json:"source" yaml:"source"`
	Status     Status    `json:"status" yaml:"status"`
}

// Time returns the entry timestamp as a time.Time.
func (t Trade) Time() time.Time {
	return time.UnixMilli(t.Timestamp)
}

// Float returns a pointer to v, for the optional price fields.
func Float(v float64) *float64 {
	return &v
}

// Filter returns the trades tagged with src, in store order.
func Filter(trades []Trade, src Source) []Trade {
	var out []Trade
	for _, t := range trades {
		if t.Source == src {
			out = append(out, t)
		}
	}
	return out
}
