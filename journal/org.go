package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/parity/market"
)

// FormatEntry renders a trace entry as a terminal line:
//
//	[15:04:05] DATA   [System] Bootstrapping ...
//
// Non-INFO levels are called out after the stage.
func FormatEntry(e LogEntry, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	ts := e.Time().In(loc).Format("15:04:05")
	if e.Level != "" && e.Level != Info {
		return fmt.Sprintf("[%s] %-6s %s: %s", ts, e.Source, e.Level, e.Message)
	}
	return fmt.Sprintf("[%s] %-6s %s", ts, e.Source, e.Message)
}

// FormatTradeOrg renders a trade as an Org-mode block. Structured facts go
// in the PROPERTIES drawer so they stay searchable.
func FormatTradeOrg(t market.Trade) string {
	heading := fmt.Sprintf("** Trade: %s %s %s (%s)", t.Symbol, t.Direction, t.Source, shortID(t.ID))
	open := t.Time().UTC().Format(time.RFC3339Nano)

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":ID: %s\n", t.ID))
	b.WriteString(fmt.Sprintf(":SOURCE: %s\n", t.Source))
	b.WriteString(fmt.Sprintf(":SYMBOL: %s\n", t.Symbol))
	b.WriteString(fmt.Sprintf(":DIRECTION: %s\n", t.Direction))
	b.WriteString(fmt.Sprintf(":ENTRY_PRICE: %s\n", f(t.EntryPrice)))
	b.WriteString(fmt.Sprintf(":EXIT_PRICE: %s\n", orDash(t.ExitPrice)))
	b.WriteString(fmt.Sprintf(":PNL: %s\n", orDash(t.PnL)))
	b.WriteString(fmt.Sprintf(":OPEN_TIME: %s\n", open))
	b.WriteString(fmt.Sprintf(":STATUS: %s\n", t.Status))
	b.WriteString(":END:\n")

	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []market.Trade) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

func orDash(x *float64) string {
	if x == nil {
		return "-"
	}
	return f(*x)
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
