package playback

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/rustyeddy/parity/journal"
	"github.com/rustyeddy/parity/market"
)

// CSVScript plays a recorded pipeline trace from a CSV file:
//
//	stage,level,message
//	DATA,INFO,[1H] Calculating Filter EMA({{.EMAFast}}, {{.EMASlow}})
//
// A header row is allowed, level may be empty (INFO) and messages may use
// StrategyParams fields as template placeholders. The file is reopened on
// every run. Settlement is delegated to Trades.
type CSVScript struct {
	Path   string
	Trades *Script
}

func NewCSVScript(path string, trades *Script) *CSVScript {
	if trades == nil {
		trades = DefaultScript()
	}
	return &CSVScript{Path: path, Trades: trades}
}

func (s *CSVScript) Open(p market.StrategyParams, _ func() time.Time) (Feed, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return &csvFeed{f: f, r: r, params: p}, nil
}

func (s *CSVScript) Settle(now time.Time) ([]market.Trade, error) {
	return settlePair(s.Trades, now), nil
}

type csvFeed struct {
	f      *os.File
	r      *csv.Reader
	params market.StrategyParams
	line   int

	sawFirst bool
}

func (f *csvFeed) Close() error {
	if f.f != nil {
		return f.f.Close()
	}
	return nil
}

func (f *csvFeed) Next() (Event, bool, error) {
	for {
		row, err := f.r.Read()
		if err == io.EOF {
			return Event{}, false, nil
		}
		if err != nil {
			return Event{}, false, err
		}
		f.line++
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		// Allow a single header row
		if !f.sawFirst {
			f.sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "stage") {
				continue
			}
		}

		ev, err := f.parseRow(row)
		if err != nil {
			return Event{}, false, fmt.Errorf("script line %d: %w", f.line, err)
		}
		return ev, true, nil
	}
}

func (f *csvFeed) parseRow(row []string) (Event, error) {
	if len(row) < 3 {
		return Event{}, fmt.Errorf("need 3 columns stage,level,message: %v", row)
	}

	stage := journal.Stage(strings.ToUpper(strings.TrimSpace(row[0])))
	if !stage.Valid() {
		return Event{}, fmt.Errorf("unknown stage %q, want one of %v", row[0], journal.Stages)
	}

	level := journal.Level(strings.ToUpper(strings.TrimSpace(row[1])))
	if level == "" {
		level = journal.Info
	}
	if !level.Valid() {
		return Event{}, fmt.Errorf("unknown level %q", row[1])
	}

	// Unquoted commas in the message split it across trailing columns.
	msg, err := render(strings.Join(row[2:], ","), f.params)
	if err != nil {
		return Event{}, err
	}
	return Event{Stage: stage, Level: level, Message: msg}, nil
}

func render(msg string, p market.StrategyParams) (string, error) {
	if !strings.Contains(msg, "{{") {
		return msg, nil
	}
	t, err := template.New("step").Option("missingkey=error").Parse(msg)
	if err != nil {
		return "", fmt.Errorf("bad message template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("render message: %w", err)
	}
	return buf.String(), nil
}
