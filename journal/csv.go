package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rustyeddy/parity/market"
)

// TradeHeader is the column order of an exported trade file. Downstream
// tooling depends on the exact literal.
var TradeHeader = []string{"timestamp", "symbol", "direction", "entryPrice", "exitPrice", "pnl", "status"}

// WriteTradesCSV writes the header and one row for every trade tagged src.
func WriteTradesCSV(w io.Writer, trades []market.Trade, src market.Source) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TradeHeader); err != nil {
		return err
	}

	for _, t := range market.Filter(trades, src) {
		if err := cw.Write(tradeRow(t)); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportFileName is the file a source's trades are exported to.
func ExportFileName(src market.Source) string {
	return string(src) + "_trades.csv"
}

// ExportCSV writes dir/<src>_trades.csv and returns its path.
func ExportCSV(dir string, trades []market.Trade, src market.Source) (string, error) {
	if !src.Valid() {
		return "", fmt.Errorf("unknown trade source %q", src)
	}

	path := filepath.Join(dir, ExportFileName(src))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}

	if err := WriteTradesCSV(f, trades, src); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

func tradeRow(t market.Trade) []string {
	return []string{
		strconv.FormatInt(t.Timestamp, 10),
		t.Symbol,
		string(t.Direction),
		f(t.EntryPrice),
		opt(t.ExitPrice),
		opt(t.PnL),
		string(t.Status),
	}
}

// f prints the shortest representation that round-trips, so 50200 stays
// "50200" and 591.88 stays "591.88".
func f(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

func opt(x *float64) string {
	if x == nil {
		return ""
	}
	return f(*x)
}
