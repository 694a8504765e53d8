package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/parity/market"
	"github.com/rustyeddy/parity/parity"
	"github.com/rustyeddy/parity/playback"
)

// Config represents the complete validation run configuration
type Config struct {
	Strategy market.StrategyParams `json:"strategy" yaml:"strategy"`
	Playback PlaybackConfig        `json:"playback" yaml:"playback"`
	Analysis AnalysisConfig        `json:"analysis" yaml:"analysis"`
	Export   ExportConfig          `json:"export" yaml:"export"`
	Log      LogConfig             `json:"log" yaml:"log"`
}

// PlaybackConfig controls the scripted pipeline run
type PlaybackConfig struct {
	Cadence string `json:"cadence" yaml:"cadence"` // e.g., "250ms"
	Symbol  string `json:"symbol" yaml:"symbol"`
	Script  string `json:"script,omitempty" yaml:"script,omitempty"` // CSV trace; empty uses the built-in script
}

// ParseCadence converts the cadence string to time.Duration
func (p PlaybackConfig) ParseCadence() (time.Duration, error) {
	if p.Cadence == "" {
		return playback.DefaultCadence, nil
	}
	return time.ParseDuration(p.Cadence)
}

// AnalysisConfig contains trade matching parameters
type AnalysisConfig struct {
	Tolerance string `json:"tolerance" yaml:"tolerance"` // e.g., "5s"
	Policy    string `json:"policy" yaml:"policy"`       // "first" or "nearest"
	Compare   string `json:"compare" yaml:"compare"`     // "first-live" or "windowed"
}

// ParseTolerance converts the tolerance string to time.Duration
func (a AnalysisConfig) ParseTolerance() (time.Duration, error) {
	if a.Tolerance == "" {
		return parity.DefaultTolerance, nil
	}
	return time.ParseDuration(a.Tolerance)
}

// Analyzer builds the parity analyzer described by a.
func (a AnalysisConfig) Analyzer() (*parity.Analyzer, error) {
	tol, err := a.ParseTolerance()
	if err != nil {
		return nil, err
	}
	pol, err := parity.ParsePolicy(a.Policy)
	if err != nil {
		return nil, err
	}
	return &parity.Analyzer{Tolerance: tol, Policy: pol}, nil
}

// ExportConfig contains trade export parameters
type ExportConfig struct {
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"` // empty disables CSV export
}

// LogConfig contains logging parameters
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // logrus level name
	Format string `json:"format" yaml:"format"` // "text" or "json"
}

// LoadFromFile loads configuration from a file (JSON or YAML)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	// Determine format by extension
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate reports every problem in the configuration at once
func (c *Config) Validate() error {
	var err error
	if perr := c.Strategy.Validate(); perr != nil {
		for _, e := range multierr.Errors(perr) {
			err = multierr.Append(err, fmt.Errorf("strategy.%w", e))
		}
	}

	if d, perr := c.Playback.ParseCadence(); perr != nil {
		err = multierr.Append(err, fmt.Errorf("playback.cadence: %w", perr))
	} else if d <= 0 {
		err = multierr.Append(err, fmt.Errorf("playback.cadence must be positive"))
	}
	if c.Playback.Symbol == "" {
		err = multierr.Append(err, fmt.Errorf("playback.symbol is required"))
	}
	if c.Playback.Script != "" {
		if _, serr := os.Stat(c.Playback.Script); serr != nil {
			err = multierr.Append(err, fmt.Errorf("playback.script: %w", serr))
		}
	}

	if d, perr := c.Analysis.ParseTolerance(); perr != nil {
		err = multierr.Append(err, fmt.Errorf("analysis.tolerance: %w", perr))
	} else if d <= 0 {
		err = multierr.Append(err, fmt.Errorf("analysis.tolerance must be positive"))
	}
	if _, perr := parity.ParsePolicy(c.Analysis.Policy); perr != nil {
		err = multierr.Append(err, fmt.Errorf("analysis.policy: %w", perr))
	}
	if _, perr := parity.ParseComparePolicy(c.Analysis.Compare); perr != nil {
		err = multierr.Append(err, fmt.Errorf("analysis.compare: %w", perr))
	}

	if c.Log.Level != "" {
		if _, perr := logrus.ParseLevel(c.Log.Level); perr != nil {
			err = multierr.Append(err, fmt.Errorf("log.level: %w", perr))
		}
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		err = multierr.Append(err, fmt.Errorf("log.format must be 'text' or 'json'"))
	}
	return err
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Strategy: market.DefaultParams(),
		Playback: PlaybackConfig{
			Cadence: playback.DefaultCadence.String(),
			Symbol:  "BTCUSDT",
		},
		Analysis: AnalysisConfig{
			Tolerance: parity.DefaultTolerance.String(),
			Policy:    parity.FirstWithin.String(),
			Compare:   parity.FirstLive.String(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
