package playback

import (
	"time"

	"github.com/rustyeddy/parity/journal"
	"github.com/rustyeddy/parity/market"
)

// Event is one scripted pipeline step. An empty Level means INFO.
type Event struct {
	Stage   journal.Stage
	Level   journal.Level
	Message string
}

// Feed yields the events of one run in order. Implementations return
// (ok=false, err=nil) once exhausted.
type Feed interface {
	Next() (ev Event, ok bool, err error)
	Close() error
}

// Source produces the pipeline a run plays back. Open may be called once per
// run, so a Source must be restartable. clock is the run's wall clock.
// Settle is called after the feed is exhausted and returns the trades the
// run completed with.
type Source interface {
	Open(p market.StrategyParams, clock func() time.Time) (Feed, error)
	Settle(now time.Time) ([]market.Trade, error)
}
