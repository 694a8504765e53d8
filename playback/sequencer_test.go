package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/parity/journal"
	"github.com/rustyeddy/parity/market"
	"github.com/rustyeddy/parity/session"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func waitDone(t *testing.T, seq *Sequencer) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return seq.Wait(ctx)
}

// sliceFeed plays a precomputed list of events.
type sliceFeed struct {
	events []Event
	pos    int
}

func newSliceFeed(events []Event) *sliceFeed {
	return &sliceFeed{events: events}
}

func (f *sliceFeed) Next() (Event, bool, error) {
	if f.pos >= len(f.events) {
		return Event{}, false, nil
	}
	ev := f.events[f.pos]
	f.pos++
	return ev, true, nil
}

func (f *sliceFeed) Close() error { return nil }

// countingSource tags every message with the run number so entries of two
// runs can be told apart.
type countingSource struct {
	mu    sync.Mutex
	runs  int
	steps int
	fail  int // fail on this step when > 0
}

func (c *countingSource) Open(market.StrategyParams, func() time.Time) (Feed, error) {
	c.mu.Lock()
	c.runs++
	run := c.runs
	c.mu.Unlock()

	events := make([]Event, c.steps)
	for i := range events {
		events[i] = Event{Stage: journal.Data, Message: fmt.Sprintf("run-%d step-%d", run, i)}
	}
	return &failingFeed{sliceFeed: newSliceFeed(events), failAt: c.fail}, nil
}

func (c *countingSource) Settle(now time.Time) ([]market.Trade, error) {
	return settlePair(DefaultScript(), now), nil
}

type failingFeed struct {
	*sliceFeed
	failAt int
}

func (f *failingFeed) Next() (Event, bool, error) {
	if f.failAt > 0 && f.pos+1 == f.failAt {
		return Event{}, false, errors.New("exchange stream dropped")
	}
	return f.sliceFeed.Next()
}

func TestSequencerCompletes(t *testing.T) {
	t.Parallel()

	sess := session.New()
	seq := New(sess, DefaultScript(), WithCadence(time.Millisecond), WithLogger(quietLogger()))

	runID, err := seq.Start(context.Background(), market.DefaultParams())
	require.NoError(t, err)
	assert.NotEmpty(t, runID)
	assert.Equal(t, runID, seq.RunID())

	require.NoError(t, waitDone(t, seq))

	state, step := seq.State()
	assert.Equal(t, Completed, state)
	assert.Equal(t, 8, step)
	assert.False(t, sess.Busy())

	logs := sess.Logs()
	require.Len(t, logs, 8)
	for i := 1; i < len(logs); i++ {
		assert.GreaterOrEqual(t, logs[i].Timestamp, logs[i-1].Timestamp)
		assert.NotEqual(t, logs[i].ID, logs[i-1].ID)
	}
	for _, e := range logs {
		assert.Equal(t, journal.Info, e.Level)
	}

	trades := sess.Trades()
	require.Len(t, trades, 2)
	assert.Equal(t, market.Backtest, trades[0].Source)
	assert.Equal(t, market.Live, trades[1].Source)
	assert.Equal(t, trades[0].Symbol, trades[1].Symbol)
	assert.Equal(t, trades[0].Direction, trades[1].Direction)
}

func TestSequencerClampsTimestamps(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		tick = time.UnixMilli(1_700_000_000_000)
	)
	// A clock that runs backwards.
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick = tick.Add(-time.Second)
		return tick
	}

	sess := session.New()
	seq := New(sess, &countingSource{steps: 5}, WithCadence(time.Millisecond), WithClock(clock), WithLogger(quietLogger()))
	_, err := seq.Start(context.Background(), market.DefaultParams())
	require.NoError(t, err)
	require.NoError(t, waitDone(t, seq))

	logs := sess.Logs()
	require.Len(t, logs, 5)
	for _, e := range logs {
		assert.Equal(t, logs[0].Timestamp, e.Timestamp)
	}
}

func TestSequencerRestartDiscardsPreviousRun(t *testing.T) {
	t.Parallel()

	sess := session.New()
	src := &countingSource{steps: 6}
	seq := New(sess, src, WithCadence(2*time.Millisecond), WithLogger(quietLogger()))

	_, err := seq.Start(context.Background(), market.DefaultParams())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(sess.Logs()) >= 1 }, 5*time.Second, time.Millisecond)

	_, err = seq.Start(context.Background(), market.DefaultParams())
	require.NoError(t, err)
	require.NoError(t, waitDone(t, seq))

	logs := sess.Logs()
	assert.Len(t, logs, 6)
	for _, e := range logs {
		assert.True(t, strings.HasPrefix(e.Message, "run-2 "), e.Message)
	}
	assert.Len(t, sess.Trades(), 2)
	assert.False(t, sess.Busy())
}

func TestSequencerRestartNeverInterleaves(t *testing.T) {
	t.Parallel()

	sess := session.New()
	seq := New(sess, &countingSource{steps: 4}, WithCadence(time.Millisecond), WithLogger(quietLogger()))

	var (
		mu      sync.Mutex
		current string
		mixed   bool
	)
	require.NoError(t, sess.OnTrades(func(trades []market.Trade) {
		if len(trades) == 0 {
			mu.Lock()
			current = ""
			mu.Unlock()
		}
	}))
	require.NoError(t, sess.OnLog(func(e journal.LogEntry) {
		run := strings.Fields(e.Message)[0]
		mu.Lock()
		defer mu.Unlock()
		if current == "" {
			current = run
		}
		if run != current {
			mixed = true
		}
	}))

	for i := 0; i < 5; i++ {
		_, err := seq.Start(context.Background(), market.DefaultParams())
		require.NoError(t, err)
		time.Sleep(time.Duration(i) * time.Millisecond)
	}
	require.NoError(t, waitDone(t, seq))

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, mixed)
	assert.Len(t, sess.Logs(), 4)
}

func TestSequencerContextCancel(t *testing.T) {
	t.Parallel()

	sess := session.New()
	seq := New(sess, DefaultScript(), WithCadence(time.Hour), WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	_, err := seq.Start(ctx, market.DefaultParams())
	require.NoError(t, err)
	assert.True(t, sess.Busy())

	cancel()
	err = waitDone(t, seq)
	assert.True(t, ErrCancelled(err))

	state, _ := seq.State()
	assert.Equal(t, Idle, state)
	assert.False(t, sess.Busy())
	assert.Empty(t, sess.Trades())
}

func TestSequencerFeedError(t *testing.T) {
	t.Parallel()

	sess := session.New()
	seq := New(sess, &countingSource{steps: 5, fail: 3}, WithCadence(time.Millisecond), WithLogger(quietLogger()))

	_, err := seq.Start(context.Background(), market.DefaultParams())
	require.NoError(t, err)

	err = waitDone(t, seq)
	require.Error(t, err)
	assert.False(t, ErrCancelled(err))

	logs := sess.Logs()
	require.Len(t, logs, 3)
	last := logs[len(logs)-1]
	assert.Equal(t, journal.Error, last.Level)
	assert.Contains(t, last.Message, "exchange stream dropped")

	assert.Empty(t, sess.Trades())
	assert.False(t, sess.Busy())
}

type brokenSource struct{ countingSource }

func (b *brokenSource) Open(market.StrategyParams, func() time.Time) (Feed, error) {
	return nil, errors.New("no such script")
}

func TestSequencerOpenError(t *testing.T) {
	t.Parallel()

	sess := session.New()
	seq := New(sess, &brokenSource{}, WithLogger(quietLogger()))

	_, err := seq.Start(context.Background(), market.DefaultParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open event source")
	assert.False(t, sess.Busy())

	state, _ := seq.State()
	assert.Equal(t, Idle, state)
	assert.NoError(t, seq.Wait(context.Background()))
}

// flakySource opens once and fails every later Open.
type flakySource struct {
	countingSource
	opened bool
}

func (f *flakySource) Open(p market.StrategyParams, clock func() time.Time) (Feed, error) {
	if f.opened {
		return nil, errors.New("script file removed")
	}
	f.opened = true
	return f.countingSource.Open(p, clock)
}

func TestSequencerFailedRestartReleasesSession(t *testing.T) {
	t.Parallel()

	sess := session.New()
	seq := New(sess, &flakySource{countingSource: countingSource{steps: 3}}, WithCadence(time.Hour), WithLogger(quietLogger()))

	_, err := seq.Start(context.Background(), market.DefaultParams())
	require.NoError(t, err)
	require.True(t, sess.Busy())

	_, err = seq.Start(context.Background(), market.DefaultParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script file removed")

	assert.False(t, sess.Busy())
	state, step := seq.State()
	assert.Equal(t, Idle, state)
	assert.Equal(t, 0, step)
	assert.Empty(t, seq.RunID())
	assert.NoError(t, seq.Wait(context.Background()))
}

func TestSequencerClockStampsOrderStep(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 2, 9, 30, 15, 0, time.Local)
	sess := session.New()
	seq := New(sess, DefaultScript(), WithCadence(time.Millisecond), WithClock(func() time.Time { return at }), WithLogger(quietLogger()))

	_, err := seq.Start(context.Background(), market.DefaultParams())
	require.NoError(t, err)
	require.NoError(t, waitDone(t, seq))

	logs := sess.Logs()
	require.Len(t, logs, 8)
	assert.Equal(t, "[Backtest] Logged Trade Signal @ 09:30:15", logs[4].Message)
	assert.True(t, at.Equal(logs[4].Time()))

	trades := sess.Trades()
	require.Len(t, trades, 2)
	assert.Equal(t, at.Add(-5*time.Second).UnixMilli(), trades[0].Timestamp)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "completed", Completed.String())
	assert.Equal(t, "State(9)", State(9).String())
}
