// Package gemini wraps the Google Gemini API for single-turn text generation.
package gemini

import (
	"context"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DefaultModel is used when a request names no model.
const DefaultModel = "gemini-2.5-flash"

// Client performs Gemini generation calls.
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Request is a single-turn generation request.
type Request struct {
	Model  string
	System string
	Prompt string
	// JSON asks the model for an application/json response body.
	JSON        bool
	Temperature *float32
}

// Response is the concatenated text of the first candidate.
type Response struct {
	Text         string
	Model        string
	FinishReason string
	Usage        TokenUsage
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// Option configures the client.
type Option func(*genai.ClientConfig)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *genai.ClientConfig) {
		c.HTTPOptions.BaseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *genai.ClientConfig) {
		c.HTTPClient = hc
	}
}

type sdkClient struct {
	client *genai.Client
}

// NewClient creates a Gemini API client.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, o := range opts {
		o(cfg)
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	return &sdkClient{client: client}, nil
}

func (c *sdkClient) Generate(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	cfg := &genai.GenerateContentConfig{Temperature: req.Temperature}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}

	result, err := c.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: generate content")
	}

	resp, err := fromSDKResponse(result)
	if err != nil {
		return nil, err
	}
	resp.Model = model

	zap.L().Debug("gemini generation complete",
		zap.String("model", model),
		zap.String("finish_reason", resp.FinishReason),
		zap.Int64("input_tokens", resp.Usage.InputTokens),
		zap.Int64("output_tokens", resp.Usage.OutputTokens),
	)
	return resp, nil
}

func fromSDKResponse(result *genai.GenerateContentResponse) (*Response, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, eris.New("gemini: no content generated")
	}

	cand := result.Candidates[0]
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return nil, eris.New("gemini: no content generated")
	}

	resp := &Response{
		Text:         sb.String(),
		FinishReason: string(cand.FinishReason),
	}
	if u := result.UsageMetadata; u != nil {
		resp.Usage = TokenUsage{
			InputTokens:  int64(u.PromptTokenCount),
			OutputTokens: int64(u.CandidatesTokenCount),
		}
	}
	return resp, nil
}
