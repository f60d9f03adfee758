// Package analysis answers free-text prompts over cached issues with the
// Anthropic Messages API.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/yashwanth-reddy909/ghia/internal/types"
)

const (
	DefaultModel       = "claude-sonnet-4-5"
	DefaultMaxTokens   = 4000
	DefaultTemperature = 0.7
	DefaultMaxRetries  = 0
)

var (
	// ErrAPIKeyRequired is returned by New when no API key is configured.
	ErrAPIKeyRequired = errors.New("API key required: set ANTHROPIC_API_KEY or llm.api-key")
	// ErrAnalysis wraps every failure of the completion call.
	ErrAnalysis = errors.New("analysis failed")
)

// Config configures an Analyzer. Zero values select the defaults above.
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int64
	Temperature *float64
	BaseURL     string
	MaxRetries  *int
}

// Analyzer sends issue lists and prompts to the model.
type Analyzer struct {
	client      anthropic.Client
	model       anthropic.Model
	maxTokens   int64
	temperature float64
}

// New creates an Analyzer. The API key is required.
func New(cfg Config) (*Analyzer, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyRequired
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	retries := DefaultMaxRetries
	if cfg.MaxRetries != nil {
		retries = *cfg.MaxRetries
	}
	opts = append(opts, option.WithMaxRetries(retries))

	a := &Analyzer{
		client:      anthropic.NewClient(opts...),
		model:       anthropic.Model(DefaultModel),
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
	}
	if cfg.Model != "" {
		a.model = anthropic.Model(cfg.Model)
	}
	if cfg.MaxTokens > 0 {
		a.maxTokens = cfg.MaxTokens
	}
	if cfg.Temperature != nil {
		a.temperature = *cfg.Temperature
	}
	return a, nil
}

// Model returns the model name requests are sent to.
func (a *Analyzer) Model() string {
	return string(a.model)
}

// Analyze answers prompt over issues. The prompt must be 10 to 2000
// characters long.
func (a *Analyzer) Analyze(ctx context.Context, issues []*types.IssueSnapshot, prompt string) (string, error) {
	if err := types.ValidatePrompt(prompt); err != nil {
		return "", err
	}

	userMessage, err := FormatPrompt(issues, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: failed to format prompt: %w", ErrAnalysis, err)
	}

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)),
		},
		Temperature: anthropic.Float(a.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAnalysis, err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: model returned no text (stop reason %q)", ErrAnalysis, message.StopReason)
	}
	return sb.String(), nil
}
