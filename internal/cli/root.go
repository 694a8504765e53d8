package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/parity/config"
	"github.com/rustyeddy/parity/internal/logging"
)

// RootConfig carries the global flags and what PersistentPreRunE builds
// from them.
type RootConfig struct {
	ConfigPath string
	EnvFile    string
	LogLevel   string
	LogFormat  string

	Cfg *config.Config
	Log *logrus.Logger
}

func NewRootCmd() *cobra.Command {
	rc := &RootConfig{}

	cmd := &cobra.Command{
		Use:           "parity",
		Short:         "Parity: backtest vs live trade validation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global / persistent flags
	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", "", "Path to config file (optional)")
	cmd.PersistentFlags().StringVar(&rc.EnvFile, "env-file", ".env", "Dotenv file with GEMINI_API_KEY and GENAI_* settings")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "", "Log level: debug|info|warn|error (overrides config)")
	cmd.PersistentFlags().StringVar(&rc.LogFormat, "log-format", "", "Log format: text|json (overrides config)")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return rc.load()
	}

	// Subcommands
	cmd.AddCommand(
		newRunCmd(rc),
		newAnalyzeCmd(rc),
		newConfigCmd(rc),
		newSummaryCmd(rc),
		newVersionCmd(),
	)

	return cmd
}

// load reads the config file, if any, and builds the logger.
func (rc *RootConfig) load() error {
	cfg := config.Default()
	if rc.ConfigPath != "" {
		var err error
		cfg, err = config.LoadFromFile(rc.ConfigPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	if rc.LogLevel != "" {
		cfg.Log.Level = rc.LogLevel
	}
	if rc.LogFormat != "" {
		cfg.Log.Format = rc.LogFormat
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	rc.Cfg = cfg
	rc.Log = log
	return nil
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
