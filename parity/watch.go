package parity

import (
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/parity/market"
)

// TradeNotifier is the subscription side of a trade store.
// *session.Session satisfies it.
type TradeNotifier interface {
	OnTrades(fn func([]market.Trade)) error
}

// Monitor keeps the Stats of a trade store current by recomputing them on
// every trade replacement.
type Monitor struct {
	a   *Analyzer
	log logrus.FieldLogger

	mu   sync.RWMutex
	last Stats
	fns  []func(Stats)
}

func NewMonitor(a *Analyzer, log logrus.FieldLogger) *Monitor {
	if a == nil {
		a = NewAnalyzer()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Monitor{a: a, log: log, last: Stats{AvgDrift: "0"}}
}

// Watch subscribes the monitor to n.
func (m *Monitor) Watch(n TradeNotifier) error {
	return n.OnTrades(m.update)
}

// OnChange registers fn to receive every recomputed Stats.
func (m *Monitor) OnChange(fn func(Stats)) {
	m.mu.Lock()
	m.fns = append(m.fns, fn)
	m.mu.Unlock()
}

// Stats returns the most recent result.
func (m *Monitor) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

func (m *Monitor) update(trades []market.Trade) {
	st := m.a.Analyze(trades)

	m.mu.Lock()
	m.last = st
	fns := slices.Clone(m.fns)
	m.mu.Unlock()

	m.log.WithFields(logrus.Fields{
		"bt":        st.BTCount,
		"live":      st.LVCount,
		"dir_match": st.DirMatch,
		"avg_drift": st.AvgDrift,
	}).Debug("parity recomputed")

	for _, fn := range fns {
		fn(st)
	}
}
