// Package playback replays a pipeline of stage events into a session at a
// fixed cadence and settles the run with a backtest/live trade pair.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/parity/journal"
	"github.com/rustyeddy/parity/market"
	"github.com/rustyeddy/parity/pkg/id"
)

// DefaultCadence is the delay between two scripted steps.
const DefaultCadence = 250 * time.Millisecond

// Store is what a run writes to. *session.Session satisfies it.
type Store interface {
	Begin()
	AppendLog(journal.LogEntry)
	ReplaceTrades([]market.Trade)
	Finish()
}

type State int

const (
	Idle State = iota
	Running
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Sequencer drives one run at a time. Starting a run cancels the previous one
// and waits for it to stop before the store is reset, so entries of two runs
// never interleave.
type Sequencer struct {
	store   Store
	src     Source
	cadence time.Duration
	now     func() time.Time
	log     logrus.FieldLogger

	startMu sync.Mutex // serializes Start

	mu    sync.Mutex
	state State
	step  int
	cur   *run
}

// run is the cancellation handle of one playback.
type run struct {
	id       string
	cancel   context.CancelFunc
	done     chan struct{}
	replaced atomic.Bool
	err      error // guarded by Sequencer.mu
}

type Option func(*Sequencer)

func WithCadence(d time.Duration) Option {
	return func(s *Sequencer) {
		if d > 0 {
			s.cadence = d
		}
	}
}

// WithClock replaces time.Now for entry timestamps and settlement.
func WithClock(now func() time.Time) Option {
	return func(s *Sequencer) { s.now = now }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Sequencer) { s.log = l }
}

func New(store Store, src Source, opts ...Option) *Sequencer {
	s := &Sequencer{
		store:   store,
		src:     src,
		cadence: DefaultCadence,
		now:     time.Now,
		log:     logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start begins a new run with params p. Any run still in flight is cancelled
// first. The run stops early if ctx is cancelled. Start returns once the run
// is scheduled; use Wait to block until it ends.
func (s *Sequencer) Start(ctx context.Context, p market.StrategyParams) (string, error) {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	prev := s.stopCurrent()

	feed, err := s.src.Open(p, s.now)
	if err != nil {
		// The replaced run left the store to us; close it out.
		s.mu.Lock()
		s.state = Idle
		s.step = 0
		s.cur = nil
		s.mu.Unlock()
		if prev {
			s.store.Finish()
		}
		return "", fmt.Errorf("open event source: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &run{id: id.New(), cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	s.state = Running
	s.step = 0
	s.cur = r
	s.mu.Unlock()

	s.store.Begin()

	log := s.log.WithField("run_id", r.id)
	log.WithField("cadence", s.cadence).Info("playback started")

	go s.loop(runCtx, r, log, feed)
	return r.id, nil
}

// stopCurrent cancels the in-flight run, if any, and waits for it to exit.
// It reports whether there was a run.
func (s *Sequencer) stopCurrent() bool {
	s.mu.Lock()
	r := s.cur
	s.mu.Unlock()

	if r == nil {
		return false
	}
	r.replaced.Store(true)
	r.cancel()
	<-r.done
	return true
}

func (s *Sequencer) loop(ctx context.Context, r *run, log logrus.FieldLogger, feed Feed) {
	defer close(r.done)
	defer r.cancel()
	defer feed.Close()

	ticker := time.NewTicker(s.cadence)
	defer ticker.Stop()

	var last int64
	for {
		select {
		case <-ctx.Done():
			s.abort(r, log, ctx.Err())
			return
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			s.abort(r, log, ctx.Err())
			return
		}

		ev, ok, err := feed.Next()
		if err != nil {
			s.fail(r, log, last, err)
			return
		}
		if !ok {
			s.settle(r, log, last)
			return
		}

		entry := s.entry(ev, &last)
		s.store.AppendLog(entry)

		s.mu.Lock()
		s.step++
		step := s.step
		s.mu.Unlock()

		log.WithFields(logrus.Fields{"step": step, "stage": ev.Stage}).Debug(ev.Message)
	}
}

// entry stamps ev with a fresh id and a timestamp that never goes backwards
// within the run, even if the wall clock does.
func (s *Sequencer) entry(ev Event, last *int64) journal.LogEntry {
	now := s.now()
	ts := now.UnixMilli()
	if ts < *last {
		ts = *last
	}
	*last = ts

	level := ev.Level
	if level == "" {
		level = journal.Info
	}
	return journal.LogEntry{
		ID:        id.At(now),
		Timestamp: ts,
		Level:     level,
		Source:    ev.Stage,
		Message:   ev.Message,
	}
}

func (s *Sequencer) settle(r *run, log logrus.FieldLogger, last int64) {
	trades, err := s.src.Settle(s.now())
	if err != nil {
		s.fail(r, log, last, fmt.Errorf("settle: %w", err))
		return
	}

	s.store.ReplaceTrades(trades)
	s.store.Finish()

	s.mu.Lock()
	s.state = Completed
	steps := s.step
	s.mu.Unlock()

	log.WithFields(logrus.Fields{"steps": steps, "trades": len(trades)}).Info("playback completed")
}

// fail records a feed error as an ERROR entry and ends the run without trades.
func (s *Sequencer) fail(r *run, log logrus.FieldLogger, last int64, err error) {
	ts := s.now().UnixMilli()
	if ts < last {
		ts = last
	}
	s.store.AppendLog(journal.LogEntry{
		ID:        id.New(),
		Timestamp: ts,
		Level:     journal.Error,
		Source:    journal.Data,
		Message:   err.Error(),
	})
	s.store.Finish()

	s.mu.Lock()
	s.state = Completed
	r.err = err
	s.mu.Unlock()

	log.WithError(err).Error("playback failed")
}

// abort handles cancellation. A run replaced by a newer Start leaves the
// store alone; the new run resets it.
func (s *Sequencer) abort(r *run, log logrus.FieldLogger, cause error) {
	s.mu.Lock()
	s.state = Idle
	r.err = cause
	s.mu.Unlock()

	if !r.replaced.Load() {
		s.store.Finish()
	}
	log.WithError(cause).Info("playback cancelled")
}

// Wait blocks until the current run ends or ctx is done. It returns the
// run's error: nil on completion, the feed error on failure, or the
// cancellation cause.
func (s *Sequencer) Wait(ctx context.Context) error {
	s.mu.Lock()
	r := s.cur
	s.mu.Unlock()

	if r == nil {
		return nil
	}
	select {
	case <-r.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return r.err
}

// State reports the machine state and, while running, the number of steps
// already appended.
func (s *Sequencer) State() (State, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.step
}

// RunID is the id of the current or last run.
func (s *Sequencer) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return ""
	}
	return s.cur.id
}

// ErrCancelled reports whether err came from a cancelled run.
func ErrCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
