// Package session holds the state of one validation run: the execution trace,
// the trade store and the busy flag. A Session is owned by whoever drives the
// run and handed by reference to the sequencer (the only writer) and to
// readers such as the parity analyzer.
package session

import (
	"sync"

	"github.com/asaskevich/EventBus"

	"github.com/rustyeddy/parity/journal"
	"github.com/rustyeddy/parity/market"
)

// Bus topics. Handlers run synchronously on the writer's goroutine, after the
// session lock has been released.
const (
	TopicLog    = "session:log"    // func(journal.LogEntry)
	TopicTrades = "session:trades" // func([]market.Trade)
	TopicBusy   = "session:busy"   // func(bool)
)

type Session struct {
	mu     sync.RWMutex
	logs   []journal.LogEntry
	trades []market.Trade
	busy   bool

	bus EventBus.Bus
}

func New() *Session {
	return &Session{bus: EventBus.New()}
}

// Begin starts a new run: the trace and trade store are cleared and the
// session is marked busy.
func (s *Session) Begin() {
	s.mu.Lock()
	s.logs = nil
	s.trades = nil
	s.busy = true
	s.mu.Unlock()

	s.bus.Publish(TopicTrades, []market.Trade{})
	s.bus.Publish(TopicBusy, true)
}

// AppendLog adds e to the end of the trace.
func (s *Session) AppendLog(e journal.LogEntry) {
	s.mu.Lock()
	s.logs = append(s.logs, e)
	s.mu.Unlock()

	s.bus.Publish(TopicLog, e)
}

// ReplaceTrades swaps the whole trade store for trades.
func (s *Session) ReplaceTrades(trades []market.Trade) {
	cp := append([]market.Trade(nil), trades...)

	s.mu.Lock()
	s.trades = cp
	s.mu.Unlock()

	s.bus.Publish(TopicTrades, s.Trades())
}

// Finish clears the busy flag.
func (s *Session) Finish() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()

	s.bus.Publish(TopicBusy, false)
}

// Logs returns a copy of the trace.
func (s *Session) Logs() []journal.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]journal.LogEntry(nil), s.logs...)
}

// Trades returns a copy of the trade store.
func (s *Session) Trades() []market.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]market.Trade(nil), s.trades...)
}

func (s *Session) Busy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.busy
}

// OnLog registers fn for every appended trace entry.
func (s *Session) OnLog(fn func(journal.LogEntry)) error {
	return s.bus.Subscribe(TopicLog, fn)
}

// OnTrades registers fn for every change of the trade store.
func (s *Session) OnTrades(fn func([]market.Trade)) error {
	return s.bus.Subscribe(TopicTrades, fn)
}

// OnBusy registers fn for busy flag transitions.
func (s *Session) OnBusy(fn func(bool)) error {
	return s.bus.Subscribe(TopicBusy, fn)
}
