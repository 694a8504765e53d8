package genai

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the text-generation settings. They are read from the
// environment only, so the API key never lands in a config file.
type Config struct {
	APIKey       string        `env:"GEMINI_API_KEY"`
	BaseURL      string        `env:"GENAI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
	CodeModel    string        `env:"GENAI_CODE_MODEL" envDefault:"gemini-3-pro-preview"`
	SummaryModel string        `env:"GENAI_SUMMARY_MODEL" envDefault:"gemini-3-flash-preview"`
	Timeout      time.Duration `env:"GENAI_TIMEOUT" envDefault:"60s"`
}

// LoadConfig loads the given .env files, if they exist, and parses the
// environment. Variables already set win over .env values.
func LoadConfig(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
