package market

import (
	"fmt"

	"go.uber.org/multierr"
)

// StrategyParams are the indicator settings of the validated strategy: a 1H
// EMA trend filter and a 15m RSI entry trigger. They only feed trace messages
// and prompts; playback control flow never depends on them.
type StrategyParams struct {
	EMAFast       int `json:"ema_fast" yaml:"ema_fast"`
	EMASlow       int `json:"ema_slow" yaml:"ema_slow"`
	RSIPeriod     int `json:"rsi_period" yaml:"rsi_period"`
	RSIOversold   int `json:"rsi_oversold" yaml:"rsi_oversold"`
	RSIOverbought int `json:"rsi_overbought" yaml:"rsi_overbought"`
}

func DefaultParams() StrategyParams {
	return StrategyParams{
		EMAFast:       50,
		EMASlow:       200,
		RSIPeriod:     14,
		RSIOversold:   30,
		RSIOverbought: 70,
	}
}

// Validate reports every out-of-range field at once.
func (p StrategyParams) Validate() error {
	var err error
	if p.EMAFast <= 0 {
		err = multierr.Append(err, fmt.Errorf("ema_fast must be positive, got %d", p.EMAFast))
	}
	if p.EMASlow <= 0 {
		err = multierr.Append(err, fmt.Errorf("ema_slow must be positive, got %d", p.EMASlow))
	}
	if p.RSIPeriod <= 0 {
		err = multierr.Append(err, fmt.Errorf("rsi_period must be positive, got %d", p.RSIPeriod))
	}
	if p.RSIOversold < 0 || p.RSIOversold > 100 {
		err = multierr.Append(err, fmt.Errorf("rsi_oversold must be within [0,100], got %d", p.RSIOversold))
	}
	if p.RSIOverbought < 0 || p.RSIOverbought > 100 {
		err = multierr.Append(err, fmt.Errorf("rsi_overbought must be within [0,100], got %d", p.RSIOverbought))
	}
	return err
}

// Warnings lists recommended orderings that are not enforced.
func (p StrategyParams) Warnings() []string {
	var out []string
	if p.EMAFast >= p.EMASlow {
		out = append(out, fmt.Sprintf("ema_fast (%d) is not below ema_slow (%d)", p.EMAFast, p.EMASlow))
	}
	if p.RSIOversold >= p.RSIOverbought {
		out = append(out, fmt.Sprintf("rsi_oversold (%d) is not below rsi_overbought (%d)", p.RSIOversold, p.RSIOverbought))
	}
	return out
}
