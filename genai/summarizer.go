package genai

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/parity/market"
)

// FallbackText is shown in place of generated text when the model could not
// be reached.
const FallbackText = "Error generating code. Please check your API key."

// Summarizer produces the two generated documents. Failures never reach the
// caller; they are logged and replaced by FallbackText.
type Summarizer struct {
	Code    Generator
	Summary Generator
	Log     logrus.FieldLogger
}

func NewSummarizer(cfg Config, log logrus.FieldLogger) *Summarizer {
	return &Summarizer{
		Code:    NewClient(cfg, cfg.CodeModel),
		Summary: NewClient(cfg, cfg.SummaryModel),
		Log:     log,
	}
}

func (s *Summarizer) logger() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

// StrategyCode asks for a strategy implementation parameterised by p.
func (s *Summarizer) StrategyCode(ctx context.Context, p market.StrategyParams) string {
	prompt, err := StrategyCodePrompt(p)
	if err != nil {
		s.logger().WithError(err).Error("render strategy prompt")
		return FallbackText
	}
	return s.generate(ctx, s.Code, "strategy_code", prompt)
}

// ParityExplanation asks for the narrative parity summary.
func (s *Summarizer) ParityExplanation(ctx context.Context) string {
	return s.generate(ctx, s.Summary, "parity_explanation", ParityPrompt())
}

func (s *Summarizer) generate(ctx context.Context, g Generator, kind, prompt string) string {
	log := s.logger().WithField("kind", kind)
	if g == nil {
		log.Error("no generator configured")
		return FallbackText
	}

	text, err := g.Generate(ctx, prompt)
	if err != nil {
		log.WithError(err).Error("text generation failed")
		return FallbackText
	}
	log.WithField("chars", len(text)).Info("text generated")
	return text
}
