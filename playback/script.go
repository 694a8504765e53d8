package playback

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/parity/journal"
	"github.com/rustyeddy/parity/market"
	"github.com/rustyeddy/parity/pkg/id"
)

// Script is the built-in simulated pipeline: three DATA steps, a SIGNAL,
// an ORDER and a FILL for each engine. It performs no computation against
// market data; the trade pair it settles with is fixed apart from timestamps.
type Script struct {
	Symbol    string
	Direction market.Direction
	Quantity  decimal.Decimal

	// Backtest fill and exit.
	Entry decimal.Decimal
	Exit  decimal.Decimal

	// Live fill = backtest fill + slippage.
	EntrySlippage decimal.Decimal
	ExitSlippage  decimal.Decimal

	// Lookback places the backtest entry before settlement time; the live
	// entry trails it by Latency.
	Lookback time.Duration
	Latency  time.Duration

	OrderID string
	Venue   string
}

// DefaultScript returns the BTCUSDT script: backtest fills at 50200.00, the
// live order fills 450ms later at 50203.12.
func DefaultScript() *Script {
	return &Script{
		Symbol:        "BTCUSDT",
		Direction:     market.Buy,
		Quantity:      decimal.RequireFromString("0.1"),
		Entry:         decimal.RequireFromString("50200"),
		Exit:          decimal.RequireFromString("50800"),
		EntrySlippage: decimal.RequireFromString("3.12"),
		ExitSlippage:  decimal.RequireFromString("-5"),
		Lookback:      5000 * time.Millisecond,
		Latency:       450 * time.Millisecond,
		OrderID:       "99281",
		Venue:         "Binance Testnet REST API",
	}
}

// SlippagePct is the live entry slippage as a percentage of the backtest fill.
func (s *Script) SlippagePct() decimal.Decimal {
	if s.Entry.IsZero() {
		return decimal.Zero
	}
	return s.EntrySlippage.Div(s.Entry).Mul(decimal.NewFromInt(100))
}

// Events renders the whole script with the ORDER step stamped at now.
func (s *Script) Events(p market.StrategyParams, now time.Time) []Event {
	out := make([]Event, scriptSteps)
	for i := range out {
		out[i] = s.event(i, p, now)
	}
	return out
}

const scriptSteps = 8

// event renders step i. now is the time the step is emitted.
func (s *Script) event(i int, p market.StrategyParams, now time.Time) Event {
	meta, _ := market.Lookup(s.Symbol)
	prec := meta.PricePrecision
	live := s.Entry.Add(s.EntrySlippage)

	switch i {
	case 0:
		return Event{Stage: journal.Data, Message: fmt.Sprintf("[System] Bootstrapping Data Streams for Symbol: %s", s.Symbol)}
	case 1:
		return Event{Stage: journal.Data, Message: fmt.Sprintf("[1H] Calculating Filter EMA(%d, %d)", p.EMAFast, p.EMASlow)}
	case 2:
		return Event{Stage: journal.Data, Message: fmt.Sprintf("[15m] Monitoring RSI(%d) for Entry", p.RSIPeriod)}
	case 3:
		return Event{Stage: journal.Signal, Message: s.signalMessage(p)}
	case 4:
		return Event{Stage: journal.Order, Message: fmt.Sprintf("[Backtest] Logged Trade Signal @ %s", now.Format("15:04:05"))}
	case 5:
		return Event{Stage: journal.Order, Message: fmt.Sprintf("[Live] Dispatching Market Order to %s...", s.Venue)}
	case 6:
		return Event{Stage: journal.Fill, Message: fmt.Sprintf("[Backtest] Filled %s %s @ %s", s.Quantity.String(), meta.BaseAsset, s.Entry.StringFixed(prec))}
	default:
		return Event{Stage: journal.Fill, Message: fmt.Sprintf("[Live] Order ID %s Filled @ %s (Slippage: %s%%)", s.OrderID, live.StringFixed(prec), s.SlippagePct().StringFixed(3))}
	}
}

func (s *Script) signalMessage(p market.StrategyParams) string {
	if s.Direction == market.Sell {
		return fmt.Sprintf("Strategy Trigger: RSI Overbought (> %d) while 1H Trend is Bearish.", p.RSIOverbought)
	}
	return fmt.Sprintf("Strategy Trigger: RSI Oversold (< %d) while 1H Trend is Bullish.", p.RSIOversold)
}

// Open returns a feed that renders each step when it is emitted, so the
// ORDER timestamp follows clock.
func (s *Script) Open(p market.StrategyParams, clock func() time.Time) (Feed, error) {
	if clock == nil {
		clock = time.Now
	}
	return &scriptFeed{s: s, p: p, clock: clock}, nil
}

type scriptFeed struct {
	s     *Script
	p     market.StrategyParams
	clock func() time.Time
	pos   int
}

func (f *scriptFeed) Next() (Event, bool, error) {
	if f.pos >= scriptSteps {
		return Event{}, false, nil
	}
	ev := f.s.event(f.pos, f.p, f.clock())
	f.pos++
	return ev, true, nil
}

func (f *scriptFeed) Close() error { return nil }

// Settle builds the backtest/live pair for a run finishing at now.
func (s *Script) Settle(now time.Time) ([]market.Trade, error) {
	return settlePair(s, now), nil
}

func settlePair(s *Script, now time.Time) []market.Trade {
	btTime := now.Add(-s.Lookback)
	lvTime := btTime.Add(s.Latency)

	liveEntry := s.Entry.Add(s.EntrySlippage)
	liveExit := s.Exit.Add(s.ExitSlippage)

	return []market.Trade{
		s.closed(id.Prefixed("bt"), btTime, market.Backtest, s.Entry, s.Exit),
		s.closed(id.Prefixed("lv"), lvTime, market.Live, liveEntry, liveExit),
	}
}

// closed builds a CLOSED trade. PnL is quoted in price points per unit.
func (s *Script) closed(tradeID string, at time.Time, src market.Source, entry, exit decimal.Decimal) market.Trade {
	pnl := exit.Sub(entry).Mul(decimal.NewFromInt(int64(s.Direction.Sign())))
	return market.Trade{
		ID:         tradeID,
		Timestamp:  at.UnixMilli(),
		Symbol:     s.Symbol,
		Direction:  s.Direction,
		EntryPrice: entry.InexactFloat64(),
		ExitPrice:  market.Float(exit.InexactFloat64()),
		PnL:        market.Float(pnl.InexactFloat64()),
		Source:     src,
		Status:     market.Closed,
	}
}
