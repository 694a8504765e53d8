package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/parity/config"
)

func newConfigCmd(rc *RootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Generate or validate configuration files",
		Long: `Manage configuration files for validation runs.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  parity config init -o parity.yaml
  parity config validate -f parity.yaml`,
	}

	cmd.AddCommand(newConfigInitCmd(), newConfigValidateCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if err := cfg.SaveToFile(output); err != nil {
				return fmt.Errorf("save config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Created default configuration: %s\n", output)
			fmt.Fprintln(out, "\nEdit the file and run with:")
			fmt.Fprintf(out, "  parity run --config %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "parity.yaml", "output config file path")
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromFile(path)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			out := cmd.OutOrStdout()
			p := cfg.Strategy
			fmt.Fprintf(out, "✓ Configuration valid: %s\n", path)
			fmt.Fprintf(out, "  Strategy: EMA(%d/%d) RSI(%d) %d/%d\n", p.EMAFast, p.EMASlow, p.RSIPeriod, p.RSIOversold, p.RSIOverbought)
			fmt.Fprintf(out, "  Playback: %s every %s\n", cfg.Playback.Symbol, cfg.Playback.Cadence)
			fmt.Fprintf(out, "  Analysis: tolerance %s, policy %s, compare %s\n", cfg.Analysis.Tolerance, cfg.Analysis.Policy, cfg.Analysis.Compare)
			for _, w := range p.Warnings() {
				fmt.Fprintf(out, "  warning: %s\n", w)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "file", "f", "", "path to config file (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
