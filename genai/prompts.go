package genai

import (
	"bytes"
	"text/template"

	"github.com/rustyeddy/parity/market"
)

const strategyCodePrompt = `Act as a Senior Quant Developer. Generate a Python class named 'NumatixMultiTimeframe'
that satisfies the Numatix developer assignment requirements.

The strategy MUST:
1. Define a 1-hour timeframe (EMA {{.EMAFast}} and EMA {{.EMASlow}}) as a trend filter.
2. Define a 15-minute timeframe (RSI {{.RSIPeriod}}) for entries.
3. Use RSI thresholds: Oversold < {{.RSIOversold}} (BUY), Overbought > {{.RSIOverbought}} (SELL).
4. Implement a Single Source of Truth: The same logic should handle 'next()' for backtesting.py
   and 'on_tick()' for the Binance Live REST API.
5. Include detailed logging for: Market Data -> Signal -> Order -> Fill.
6. Include logic for position sizing (e.g., fixed % of equity).

The code must be clean, class-based, and include type hinting. Include a README section at the bottom explaining how to match backtest vs live trades.
`

const parityPrompt = `Provide a professional 2-page equivalent summary for a Quant Developer assignment.
Cover:
1. Multi-Timeframe Strategy Logic (1H Trend, 15m RSI).
2. Class Architecture (Single Source of Truth).
3. Parity mechanism (How backtest vs live execution is synchronized).
4. Trade Matching Strategy (Handling latency and slippage).`

var codeTmpl = template.Must(template.New("code").Option("missingkey=error").Parse(strategyCodePrompt))

// StrategyCodePrompt renders the code-generation prompt for p.
func StrategyCodePrompt(p market.StrategyParams) (string, error) {
	var buf bytes.Buffer
	if err := codeTmpl.Execute(&buf, p); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ParityPrompt is the prompt for the parity explanation.
func ParityPrompt() string {
	return parityPrompt
}
