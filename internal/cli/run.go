package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/parity/config"
	"github.com/rustyeddy/parity/genai"
	"github.com/rustyeddy/parity/journal"
	"github.com/rustyeddy/parity/market"
	"github.com/rustyeddy/parity/parity"
	"github.com/rustyeddy/parity/playback"
	"github.com/rustyeddy/parity/session"
)

func newRunCmd(rc *RootConfig) *cobra.Command {
	var (
		pf paramFlags

		cadence   string
		script    string
		exportDir string
		report    string
		explain   bool
		quiet     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one validation pass and print parity statistics",
		Long: `Play the pipeline (DATA -> SIGNAL -> ORDER -> FILL) step by step,
settle the backtest/live trade pair and compare them.

Examples:
  parity run
  parity run --ema-fast 21 --ema-slow 55 --export ./out
  parity run --script trace.csv --report parity.org --explain`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *rc.Cfg
			cfg.Strategy = pf.apply(cmd, cfg.Strategy)
			if cmd.Flags().Changed("cadence") {
				cfg.Playback.Cadence = cadence
			}
			if script != "" {
				cfg.Playback.Script = script
			}
			if exportDir != "" {
				cfg.Export.Dir = exportDir
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid settings: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			res, err := execute(ctx, rc, &cfg, cmd.OutOrStdout(), quiet)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printStats(out, res.stats)
			printComparison(out, res.rows)

			if cfg.Export.Dir != "" {
				if err := os.MkdirAll(cfg.Export.Dir, 0o755); err != nil {
					return fmt.Errorf("export dir: %w", err)
				}
				for _, src := range market.Sources {
					path, err := journal.ExportCSV(cfg.Export.Dir, res.trades, src)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Exported %s trades to %s\n", src, path)
				}
			}

			if report != "" {
				var text string
				if explain {
					gcfg, err := genai.LoadConfig(rc.EnvFile)
					if err != nil {
						return err
					}
					text = genai.NewSummarizer(gcfg, rc.Log).ParityExplanation(ctx)
					if text == genai.FallbackText {
						text = ""
					}
				}
				r := buildReport(res, &cfg, text)
				if err := r.WriteOrg(report); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
				fmt.Fprintf(out, "Report written to %s\n", report)
			}
			return nil
		},
	}

	pf.register(cmd)
	cmd.Flags().StringVar(&cadence, "cadence", "", "delay between pipeline steps (e.g. 250ms)")
	cmd.Flags().StringVar(&script, "script", "", "CSV trace (stage,level,message) to play instead of the built-in script")
	cmd.Flags().StringVar(&exportDir, "export", "", "directory to write backtest_trades.csv and live_trades.csv")
	cmd.Flags().StringVar(&report, "report", "", "write an org-mode parity report to this file")
	cmd.Flags().BoolVar(&explain, "explain", false, "ask the text-generation service for the report summary")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not stream the execution trace")
	return cmd
}

type runResult struct {
	runID  string
	trades []market.Trade
	stats  parity.Stats
	rows   []parity.Row
	params market.StrategyParams
}

// execute plays one run to completion. The trace is streamed to out unless
// quiet is set.
func execute(ctx context.Context, rc *RootConfig, cfg *config.Config, out io.Writer, quiet bool) (*runResult, error) {
	log := rc.Log
	for _, w := range cfg.Strategy.Warnings() {
		log.Warn(w)
	}

	cadence, err := cfg.Playback.ParseCadence()
	if err != nil {
		return nil, err
	}
	analyzer, err := cfg.Analysis.Analyzer()
	if err != nil {
		return nil, err
	}
	policy, err := parity.ParseComparePolicy(cfg.Analysis.Compare)
	if err != nil {
		return nil, err
	}

	sc := playback.DefaultScript()
	sc.Symbol = cfg.Playback.Symbol
	var src playback.Source = sc
	if cfg.Playback.Script != "" {
		src = playback.NewCSVScript(cfg.Playback.Script, sc)
	}

	sess := session.New()
	if !quiet {
		if err := sess.OnLog(func(e journal.LogEntry) {
			fmt.Fprintln(out, journal.FormatEntry(e, time.Local))
		}); err != nil {
			return nil, err
		}
	}

	mon := parity.NewMonitor(analyzer, log)
	if err := mon.Watch(sess); err != nil {
		return nil, err
	}

	seq := playback.New(sess, src, playback.WithCadence(cadence), playback.WithLogger(log))
	runID, err := seq.Start(ctx, cfg.Strategy)
	if err != nil {
		return nil, err
	}
	if err := seq.Wait(ctx); err != nil {
		if playback.ErrCancelled(err) {
			return nil, fmt.Errorf("run %s cancelled: %w", runID, err)
		}
		return nil, fmt.Errorf("run %s failed: %w", runID, err)
	}

	trades := sess.Trades()
	return &runResult{
		runID:  runID,
		trades: trades,
		stats:  mon.Stats(),
		rows:   analyzer.Compare(trades, policy),
		params: cfg.Strategy,
	}, nil
}

func printStats(w io.Writer, st parity.Stats) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"BT Trades", "Live Trades", "Dir. Parity", "Avg Drift"})
	table.SetAlignment(tablewriter.ALIGN_CENTER)
	table.Append([]string{
		fmt.Sprint(st.BTCount),
		fmt.Sprint(st.LVCount),
		fmt.Sprintf("%g%%", st.DirMatch),
		st.AvgDrift + "ms",
	})
	fmt.Fprintln(w)
	table.Render()
}

func printComparison(w io.Writer, rows []parity.Row) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Time", "Backtest Price", "Live Price", "Delta (%)", "In Window"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, r := range rows {
		inWin := "no"
		if r.InWindow {
			inWin = "yes"
		}
		table.Append([]string{
			r.Backtest.Time().Local().Format("15:04:05"),
			fmt.Sprint(r.Backtest.EntryPrice),
			r.LivePrice(),
			r.DeltaString() + "%",
			inWin,
		})
	}
	if len(rows) == 0 {
		table.Append([]string{"", "No validation data.", "", "", ""})
	}
	table.Render()
}

func buildReport(res *runResult, cfg *config.Config, explanation string) *journal.ParityReport {
	lines := make([]journal.ComparisonLine, 0, len(res.rows))
	var notes []string
	for _, r := range res.rows {
		lines = append(lines, journal.ComparisonLine{
			Time:          r.Backtest.Time(),
			BacktestPrice: r.Backtest.EntryPrice,
			LivePrice:     r.LivePrice(),
			Delta:         r.DeltaString(),
			InWindow:      r.InWindow,
		})
		if r.Live != nil && !r.InWindow {
			notes = append(notes, fmt.Sprintf("backtest trade %s compared against live trade %s outside the %s window",
				r.Backtest.ID, r.Live.ID, cfg.Analysis.Tolerance))
		}
	}
	if cfg.Playback.Script != "" {
		notes = append(notes, "pipeline played from "+filepath.Base(cfg.Playback.Script))
	}
	notes = append(notes, res.params.Warnings()...)

	return &journal.ParityReport{
		RunID:       res.runID,
		Created:     time.Now(),
		Symbol:      cfg.Playback.Symbol,
		Params:      res.params,
		BTCount:     res.stats.BTCount,
		LVCount:     res.stats.LVCount,
		DirMatch:    res.stats.DirMatch,
		AvgDrift:    res.stats.AvgDrift,
		Comparison:  lines,
		Trades:      res.trades,
		Explanation: strings.TrimSpace(explanation),
		Notes:       notes,
	}
}
