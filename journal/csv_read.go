package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rustyeddy/parity/market"
	"github.com/rustyeddy/parity/pkg/id"
)

// ReadTradesCSV parses a file written by WriteTradesCSV. Every trade is
// tagged src and given a fresh id, since neither is part of the format.
func ReadTradesCSV(r io.Reader, src market.Source) ([]market.Trade, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(TradeHeader)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if strings.Join(header, ",") != strings.Join(TradeHeader, ",") {
		return nil, fmt.Errorf("unexpected header %q", strings.Join(header, ","))
	}

	var out []market.Trade
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		t, err := parseTradeRow(row, src)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, t)
	}
}

func parseTradeRow(row []string, src market.Source) (market.Trade, error) {
	ts, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return market.Trade{}, fmt.Errorf("timestamp: %w", err)
	}
	entry, err := strconv.ParseFloat(row[3], 64)
	if err != nil {
		return market.Trade{}, fmt.Errorf("entryPrice: %w", err)
	}
	exit, err := parseOpt(row[4])
	if err != nil {
		return market.Trade{}, fmt.Errorf("exitPrice: %w", err)
	}
	pnl, err := parseOpt(row[5])
	if err != nil {
		return market.Trade{}, fmt.Errorf("pnl: %w", err)
	}

	dir := market.Direction(row[2])
	if dir != market.Buy && dir != market.Sell {
		return market.Trade{}, fmt.Errorf("direction %q", row[2])
	}

	return market.Trade{
		ID:         id.Prefixed(string(src)),
		Timestamp:  ts,
		Symbol:     row[1],
		Direction:  dir,
		EntryPrice: entry,
		ExitPrice:  exit,
		PnL:        pnl,
		Source:     src,
		Status:     market.Status(row[6]),
	}, nil
}

func parseOpt(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ImportCSV reads both export files from dir, backtest first. A missing
// file contributes no trades.
func ImportCSV(dir string) ([]market.Trade, error) {
	var out []market.Trade
	for _, src := range market.Sources {
		path := filepath.Join(dir, ExportFileName(src))
		f, err := os.Open(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		trades, err := ReadTradesCSV(f, src)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		out = append(out, trades...)
	}
	return out, nil
}
