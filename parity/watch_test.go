package parity

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/parity/market"
	"github.com/rustyeddy/parity/session"
)

func TestMonitorRecomputesOnReplace(t *testing.T) {
	t.Parallel()

	log := logrus.New()
	log.SetOutput(io.Discard)

	sess := session.New()
	m := NewMonitor(nil, log)
	require.NoError(t, m.Watch(sess))

	var seen []Stats
	m.OnChange(func(st Stats) { seen = append(seen, st) })

	assert.Equal(t, "0", m.Stats().AvgDrift)

	sess.Begin()
	sess.ReplaceTrades([]market.Trade{
		trade("bt1", market.Backtest, 1000, market.Buy, 50200),
		trade("lv1", market.Live, 1450, market.Buy, 50203.12),
	})

	st := m.Stats()
	assert.Equal(t, 1, st.BTCount)
	assert.Equal(t, "450", st.AvgDrift)

	require.Len(t, seen, 2)
	assert.Equal(t, 0, seen[0].BTCount)
	assert.Equal(t, st, seen[1])
}
