package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/parity/genai"
)

func newSummaryCmd(rc *RootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Generate strategy source or a parity explanation",
		Long: `Ask the text-generation service (GEMINI_API_KEY) for documents about the
validated strategy. Failures print a fixed error message instead.`,
	}
	cmd.AddCommand(newSummaryCodeCmd(rc), newSummaryExplainCmd(rc))
	return cmd
}

func newSummaryCodeCmd(rc *RootConfig) *cobra.Command {
	var pf paramFlags

	cmd := &cobra.Command{
		Use:   "code",
		Short: "Generate the multi-timeframe strategy class",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := pf.apply(cmd, rc.Cfg.Strategy)
			if err := p.Validate(); err != nil {
				return fmt.Errorf("invalid strategy params: %w", err)
			}

			s, err := summarizer(rc)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.StrategyCode(cmd.Context(), p))
			return nil
		},
	}
	pf.register(cmd)
	return cmd
}

func newSummaryExplainCmd(rc *RootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "explain",
		Short: "Explain how backtest/live parity is maintained",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := summarizer(rc)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.ParityExplanation(cmd.Context()))
			return nil
		},
	}
}

func summarizer(rc *RootConfig) (*genai.Summarizer, error) {
	cfg, err := genai.LoadConfig(rc.EnvFile)
	if err != nil {
		return nil, err
	}
	return genai.NewSummarizer(cfg, rc.Log), nil
}
