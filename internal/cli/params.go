package cli

import (
	"github.com/spf13/cobra"

	"github.com/rustyeddy/parity/market"
)

// paramFlags binds the strategy parameters to flags. Flags the user did not
// set leave the configured value alone.
type paramFlags struct {
	p market.StrategyParams
}

func (pf *paramFlags) register(cmd *cobra.Command) {
	d := market.DefaultParams()
	fs := cmd.Flags()
	fs.IntVar(&pf.p.EMAFast, "ema-fast", d.EMAFast, "1H trend filter fast EMA period")
	fs.IntVar(&pf.p.EMASlow, "ema-slow", d.EMASlow, "1H trend filter slow EMA period")
	fs.IntVar(&pf.p.RSIPeriod, "rsi-period", d.RSIPeriod, "15m RSI period")
	fs.IntVar(&pf.p.RSIOversold, "rsi-oversold", d.RSIOversold, "RSI BUY threshold")
	fs.IntVar(&pf.p.RSIOverbought, "rsi-overbought", d.RSIOverbought, "RSI SELL threshold")
}

// apply overlays the flags that were set on base.
func (pf *paramFlags) apply(cmd *cobra.Command, base market.StrategyParams) market.StrategyParams {
	fs := cmd.Flags()
	if fs.Changed("ema-fast") {
		base.EMAFast = pf.p.EMAFast
	}
	if fs.Changed("ema-slow") {
		base.EMASlow = pf.p.EMASlow
	}
	if fs.Changed("rsi-period") {
		base.RSIPeriod = pf.p.RSIPeriod
	}
	if fs.Changed("rsi-oversold") {
		base.RSIOversold = pf.p.RSIOversold
	}
	if fs.Changed("rsi-overbought") {
		base.RSIOverbought = pf.p.RSIOverbought
	}
	return base
}
