package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/parity/journal"
	"github.com/rustyeddy/parity/parity"
)

func newAnalyzeCmd(rc *RootConfig) *cobra.Command {
	var (
		dir     string
		policy  string
		compare string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compute parity statistics from exported trade files",
		Long: `Read backtest_trades.csv and live_trades.csv from a directory written by
"parity run --export" and print the same statistics and comparison.

Example:
  parity analyze --dir ./out --policy nearest --compare windowed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ac := rc.Cfg.Analysis
			if policy != "" {
				ac.Policy = policy
			}
			if compare != "" {
				ac.Compare = compare
			}
			analyzer, err := ac.Analyzer()
			if err != nil {
				return err
			}
			cp, err := parity.ParseComparePolicy(ac.Compare)
			if err != nil {
				return err
			}

			trades, err := journal.ImportCSV(dir)
			if err != nil {
				return fmt.Errorf("import trades: %w", err)
			}
			rc.Log.WithField("trades", len(trades)).Debug("trades imported")

			out := cmd.OutOrStdout()
			printStats(out, analyzer.Analyze(trades))
			printComparison(out, analyzer.Compare(trades, cp))
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "directory holding the exported trade files")
	cmd.Flags().StringVar(&policy, "policy", "", "drift matching policy: first|nearest")
	cmd.Flags().StringVar(&compare, "compare", "", "comparison pairing: first-live|windowed")
	return cmd
}
