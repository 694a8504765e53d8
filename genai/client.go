// Package genai talks to the hosted text-generation model that writes the
// strategy source and the parity explanation.
package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	googlegenai "google.golang.org/genai"
)

var ErrNoAPIKey = errors.New("genai: api key is empty")

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Client calls the generateContent endpoint for one model.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string

	HTTP *http.Client
}

func NewClient(cfg Config, model string) *Client {
	return &Client{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   model,
		HTTP:    &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) sdk(ctx context.Context, apiKey string) (*googlegenai.Client, error) {
	cc := &googlegenai.ClientConfig{
		APIKey:     apiKey,
		Backend:    googlegenai.BackendGeminiAPI,
		HTTPClient: c.HTTP,
	}
	// empty keeps the SDK default endpoint
	if base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/"); base != "" {
		cc.HTTPOptions.BaseURL = base + "/"
	}
	return googlegenai.NewClient(ctx, cc)
}

// Generate sends prompt as a single user turn and returns the text of the
// first candidate.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	apiKey := strings.TrimSpace(c.APIKey)
	if apiKey == "" {
		return "", ErrNoAPIKey
	}

	client, err := c.sdk(ctx, apiKey)
	if err != nil {
		return "", fmt.Errorf("genai %s: new client: %w", c.Model, err)
	}

	resp, err := client.Models.GenerateContent(ctx, c.Model, googlegenai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("genai %s: %w", c.Model, err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("genai %s: no candidates", c.Model)
	}
	return resp.Text(), nil
}
