package journal

import (
	"bytes"
	"fmt"
	"os"
	"text/template"
	"time"

	"github.com/rustyeddy/parity/market"
)

// ParityReport is everything the parity summary document shows about one
// validation run.
type ParityReport struct {
	RunID   string
	Created time.Time
	Symbol  string
	Params  market.StrategyParams

	BTCount  int
	LVCount  int
	DirMatch float64
	AvgDrift string

	Comparison []ComparisonLine
	Trades     []market.Trade

	// Explanation replaces the built-in narrative when non-empty.
	Explanation string
	Notes       []string
}

// ComparisonLine is one row of the backtest vs live price table.
type ComparisonLine struct {
	Time          time.Time
	BacktestPrice float64
	LivePrice     string
	Delta         string
	InWindow      bool
}

var reportFuncs = template.FuncMap{
	"num": f,
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
	"clock": func(t time.Time) string { return t.UTC().Format("15:04:05") },
	"trades": FormatTradesOrg,
}

// Render executes the report template.
func (r *ParityReport) Render() (string, error) {
	t, err := template.New("parity").Funcs(reportFuncs).Parse(ParityOrgTemplate)
	if err != nil {
		return "", fmt.Errorf("parse report template: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := t.Execute(buf, r); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

// WriteOrg renders the report to path.
func (r *ParityReport) WriteOrg(path string) error {
	s, err := r.Render()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(s), 0644)
}

const ParityOrgTemplate = `* PARITY: {{.Symbol}} EMA({{.Params.EMAFast}}/{{.Params.EMASlow}}) RSI({{.Params.RSIPeriod}})
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:SYMBOL:      {{.Symbol}}
:BT_TRADES:   {{.BTCount}}
:LV_TRADES:   {{.LVCount}}
:DIR_PARITY:  {{.DirMatch}}%
:AVG_DRIFT:   {{.AvgDrift}}ms
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Strategy Parameters
| Parameter      | Value |
|----------------+-------|
| EMA Fast       | {{.Params.EMAFast}} |
| EMA Slow       | {{.Params.EMASlow}} |
| RSI Period     | {{.Params.RSIPeriod}} |
| RSI Oversold   | {{.Params.RSIOversold}} |
| RSI Overbought | {{.Params.RSIOverbought}} |

** Trade Comparison
| Time | Backtest Price | Live Price | Delta (%) | In Window |
|------+----------------+------------+-----------+-----------|
{{- range .Comparison }}
| {{clock .Time}} | {{num .BacktestPrice}} | {{.LivePrice}} | {{.Delta}} | {{if .InWindow}}yes{{else}}no{{end}} |
{{- end }}

** Summary
{{- if .Explanation }}
{{ .Explanation }}
{{- else }}
*** 1. Strategy Logic
The strategy uses two timeframes. The 1-hour timeframe computes a trend filter
(EMA {{.Params.EMAFast}} vs EMA {{.Params.EMASlow}}) and signals are only taken
in the direction of that trend. Entries trigger on the 15-minute timeframe from
RSI({{.Params.RSIPeriod}}) thresholds ({{.Params.RSIOversold}}/{{.Params.RSIOverbought}}).

*** 2. Architecture Overview
A single strategy core produces signals. A driver wraps it for either the
backtest event loop or the live exchange REST API, so both engines run the
same logic.

*** 3. Parity Assurance
Both engines consume the same candle model regardless of origin, and the logic
layer only talks to an abstract broker, keeping behaviour one-to-one.

*** 4. Trade Matching Observations
Trades are paired when their entry times fall within the tolerance window.
This run measured an average drift of {{.AvgDrift}}ms with {{.DirMatch}}%
directional parity.
{{- end }}
{{- if .Notes }}

** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
{{- if .Trades }}

** Trades
{{ trades .Trades }}
{{- end }}
`
