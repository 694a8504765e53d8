package parity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/parity/market"
)

func trade(id string, src market.Source, ts int64, dir market.Direction, entry float64) market.Trade {
	return market.Trade{
		ID:         id,
		Timestamp:  ts,
		Symbol:     "BTCUSDT",
		Direction:  dir,
		EntryPrice: entry,
		Source:     src,
		Status:     market.Closed,
	}
}

func TestAnalyzeScenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		trades []market.Trade
		want   Stats
	}{
		{
			name: "backtest and live buy 400ms apart",
			trades: []market.Trade{
				trade("bt1", market.Backtest, 1000, market.Buy, 100),
				trade("lv1", market.Live, 1400, market.Buy, 100),
			},
			want: Stats{BTCount: 1, LVCount: 1, DirMatch: 100, AvgDrift: "400", Matched: 1},
		},
		{
			name: "live sell 8000ms after backtest buy",
			trades: []market.Trade{
				trade("bt1", market.Backtest, 1000, market.Buy, 100),
				trade("lv1", market.Live, 9000, market.Sell, 100),
			},
			want: Stats{BTCount: 1, LVCount: 1, DirMatch: 0, AvgDrift: "0"},
		},
		{
			name: "single pair within tolerance",
			trades: []market.Trade{
				trade("bt1", market.Backtest, 1000, market.Buy, 50200),
				trade("lv1", market.Live, 1450, market.Buy, 50203.12),
			},
			want: Stats{BTCount: 1, LVCount: 1, DirMatch: 100, AvgDrift: "450", Matched: 1},
		},
		{
			name: "opposite direction outside tolerance",
			trades: []market.Trade{
				trade("bt1", market.Backtest, 0, market.Buy, 100),
				trade("lv1", market.Live, 6000, market.Sell, 100),
			},
			want: Stats{BTCount: 1, LVCount: 1, DirMatch: 0, AvgDrift: "0"},
		},
		{
			name: "one live trade shared by two backtest trades",
			trades: []market.Trade{
				trade("bt1", market.Backtest, 0, market.Buy, 100),
				trade("bt2", market.Backtest, 10000, market.Buy, 100),
				trade("lv1", market.Live, 1000, market.Buy, 100),
			},
			want: Stats{BTCount: 2, LVCount: 1, DirMatch: 100, AvgDrift: "1000", Matched: 1},
		},
		{
			name:   "empty store",
			trades: nil,
			want:   Stats{AvgDrift: "0"},
		},
		{
			name: "live only",
			trades: []market.Trade{
				trade("lv1", market.Live, 0, market.Buy, 100),
			},
			want: Stats{LVCount: 1, AvgDrift: "0"},
		},
		{
			name: "gap equal to tolerance is not a match",
			trades: []market.Trade{
				trade("bt1", market.Backtest, 0, market.Buy, 100),
				trade("lv1", market.Live, 5000, market.Buy, 100),
			},
			want: Stats{BTCount: 1, LVCount: 1, DirMatch: 100, AvgDrift: "0"},
		},
		{
			name: "unknown source ignored",
			trades: []market.Trade{
				trade("x", market.Source("paper"), 0, market.Buy, 100),
			},
			want: Stats{AvgDrift: "0"},
		},
		{
			name: "mean rounds to whole milliseconds",
			trades: []market.Trade{
				trade("bt1", market.Backtest, 0, market.Buy, 100),
				trade("bt2", market.Backtest, 100, market.Buy, 100),
				trade("lv1", market.Live, 100, market.Buy, 100),
				trade("lv2", market.Live, 101, market.Buy, 100),
			},
			// bt1 -> lv1 (100), bt2 -> lv1 (0): mean 50
			want: Stats{BTCount: 2, LVCount: 2, DirMatch: 100, AvgDrift: "50", Matched: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Analyze(tt.trades))
		})
	}
}

func TestAnalyzeDoesNotMutate(t *testing.T) {
	t.Parallel()

	trades := []market.Trade{
		trade("lv1", market.Live, 1450, market.Buy, 50203.12),
		trade("bt1", market.Backtest, 1000, market.Buy, 50200),
	}
	before := append([]market.Trade(nil), trades...)
	Analyze(trades)
	assert.Equal(t, before, trades)
}

func TestAnalyzeDriftRounding(t *testing.T) {
	t.Parallel()

	trades := []market.Trade{
		trade("bt1", market.Backtest, 0, market.Buy, 100),
		trade("bt2", market.Backtest, 1000, market.Buy, 100),
		trade("lv1", market.Live, 1, market.Buy, 100),
	}
	// gaps 1 and 999: mean 500
	assert.Equal(t, "500", Analyze(trades).AvgDrift)

	trades = []market.Trade{
		trade("bt1", market.Backtest, 0, market.Buy, 100),
		trade("bt2", market.Backtest, 10, market.Buy, 100),
		trade("lv1", market.Live, 0, market.Buy, 100),
	}
	// gaps 0 and 10
	assert.Equal(t, "5", Analyze(trades).AvgDrift)

	trades = []market.Trade{
		trade("bt1", market.Backtest, 0, market.Buy, 100),
		trade("bt2", market.Backtest, 3, market.Buy, 100),
		trade("lv1", market.Live, 0, market.Buy, 100),
	}
	// mean 1.5 rounds half up
	assert.Equal(t, "2", Analyze(trades).AvgDrift)
}

func TestAnalyzerNearestPolicy(t *testing.T) {
	t.Parallel()

	trades := []market.Trade{
		trade("bt1", market.Backtest, 10000, market.Buy, 100),
		trade("lv1", market.Live, 6000, market.Buy, 100),  // 4000
		trade("lv2", market.Live, 10200, market.Buy, 100), // 200
	}

	first := NewAnalyzer().Analyze(trades)
	assert.Equal(t, "4000", first.AvgDrift)

	near := (&Analyzer{Tolerance: DefaultTolerance, Policy: Nearest}).Analyze(trades)
	assert.Equal(t, "200", near.AvgDrift)
	assert.Equal(t, 1, near.Matched)
}

func TestAnalyzerNearestTiePrefersStoreOrder(t *testing.T) {
	t.Parallel()

	a := &Analyzer{Tolerance: DefaultTolerance, Policy: Nearest}
	b := trade("bt1", market.Backtest, 10000, market.Buy, 100)
	lv := []market.Trade{
		trade("lv1", market.Live, 10300, market.Buy, 100),
		trade("lv2", market.Live, 9700, market.Buy, 100),
	}

	got, ok := a.match(b, lv)
	assert.True(t, ok)
	assert.Equal(t, "lv1", got.ID)
}

func TestAnalyzerCustomTolerance(t *testing.T) {
	t.Parallel()

	trades := []market.Trade{
		trade("bt1", market.Backtest, 0, market.Buy, 100),
		trade("lv1", market.Live, 450, market.Buy, 100),
	}

	tight := &Analyzer{Tolerance: 100 * time.Millisecond}
	assert.Equal(t, 0, tight.Analyze(trades).Matched)

	unset := &Analyzer{}
	assert.Equal(t, "450", unset.Analyze(trades).AvgDrift)
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	p, err := ParsePolicy("nearest")
	assert.NoError(t, err)
	assert.Equal(t, Nearest, p)
	assert.Equal(t, "nearest", p.String())

	p, err = ParsePolicy("")
	assert.NoError(t, err)
	assert.Equal(t, FirstWithin, p)

	_, err = ParsePolicy("closest")
	assert.Error(t, err)
}
