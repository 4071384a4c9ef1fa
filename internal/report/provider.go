package report

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/sells-group/cvm-report/internal/config"
	"github.com/sells-group/cvm-report/pkg/anthropic"
	"github.com/sells-group/cvm-report/pkg/gemini"
)

// Generator sends one system and user prompt pair to a language model and
// returns the raw text of its answer.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

type geminiGenerator struct {
	client gemini.Client
	model  string
}

// NewGeminiGenerator returns a Generator backed by Gemini in JSON response mode.
func NewGeminiGenerator(client gemini.Client, model string) Generator {
	return &geminiGenerator{client: client, model: model}
}

func (g *geminiGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	resp, err := g.client.Generate(ctx, gemini.Request{
		Model:       g.model,
		System:      system,
		Prompt:      prompt,
		JSON:        true,
		Temperature: genai.Ptr(float32(0.2)),
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

type anthropicGenerator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicGenerator returns a Generator backed by the Anthropic Messages API.
func NewAnthropicGenerator(client anthropic.Client, model string, maxTokens int64) Generator {
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	return &anthropicGenerator{client: client, model: model, maxTokens: maxTokens}
}

func (g *anthropicGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	temp := 0.2
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		System:      system,
		Prompt:      prompt,
		Temperature: &temp,
	})
	if err != nil {
		return "", err
	}
	resp.Usage.Log(g.model)
	if resp.Truncated() {
		zap.L().Warn("anthropic answer hit max_tokens", zap.Int64("max_tokens", g.maxTokens))
	}
	return resp.Text, nil
}

// NewGenerator builds the Generator selected by cfg.LLM.Provider.
func NewGenerator(ctx context.Context, cfg *config.Config) (Generator, error) {
	switch cfg.LLM.Provider {
	case config.ProviderGemini, "":
		if cfg.Gemini.Key == "" {
			return nil, eris.Wrap(ErrNotConfigured, "gemini.key is empty")
		}
		client, err := gemini.NewClient(ctx, cfg.Gemini.Key)
		if err != nil {
			return nil, err
		}
		return NewGeminiGenerator(client, cfg.Gemini.Model), nil
	case config.ProviderAnthropic:
		if cfg.Anthropic.Key == "" {
			return nil, eris.Wrap(ErrNotConfigured, "anthropic.key is empty")
		}
		client := anthropic.NewClient(cfg.Anthropic.Key)
		return NewAnthropicGenerator(client, cfg.Anthropic.Model, int64(cfg.Anthropic.MaxTokens)), nil
	default:
		return nil, eris.Wrapf(ErrNotConfigured, "unknown provider %q", cfg.LLM.Provider)
	}
}
