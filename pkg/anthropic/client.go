// Package anthropic sends single-turn prompts to the Anthropic Messages API.
package anthropic

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Client is the subset of the Messages API used by the report synthesizer.
type Client interface {
	CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
}

// MessageRequest is one system prompt plus one user turn.
type MessageRequest struct {
	Model       string
	MaxTokens   int64
	System      string
	Prompt      string
	Temperature *float64
}

// MessageResponse holds the joined text blocks of a reply.
type MessageResponse struct {
	ID         string
	Model      string
	Text       string
	StopReason string
	Usage      TokenUsage
}

// Truncated reports whether the reply stopped at the max_tokens limit.
func (r *MessageResponse) Truncated() bool {
	return r.StopReason == "max_tokens"
}

// TokenUsage is the billed token count of one call.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// usdPerMTok lists the models accepted for anthropic.model with their
// input and output price per million tokens.
var usdPerMTok = map[string]struct{ in, out float64 }{
	"claude-sonnet-4-5-20250929": {3, 15},
	"claude-sonnet-4-5":          {3, 15},
	"claude-haiku-4-5-20251001":  {1, 5},
	"claude-opus-4-1-20250805":   {15, 75},
}

// EstimateCost returns the USD cost of u under model, or 0 when the model is not priced.
func (u TokenUsage) EstimateCost(model string) float64 {
	p, ok := usdPerMTok[model]
	if !ok {
		return 0
	}
	return float64(u.InputTokens)/1e6*p.in + float64(u.OutputTokens)/1e6*p.out
}

// Log records the token counts and estimated cost of a call.
func (u TokenUsage) Log(model string) {
	zap.L().Info("anthropic usage",
		zap.String("model", model),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Float64("estimated_cost_usd", u.EstimateCost(model)),
	)
}

type sdkClient struct {
	client sdk.Client
}

// NewClient returns a Client backed by anthropic-sdk-go with SDK retries
// disabled. opts are applied last and may override the defaults.
func NewClient(apiKey string, opts ...option.RequestOption) Client {
	all := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	return &sdkClient{client: sdk.NewClient(all...)}
}

func (c *sdkClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt))},
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: create message")
	}
	return toResponse(msg), nil
}

func toResponse(msg *sdk.Message) *MessageResponse {
	var text strings.Builder
	for _, b := range msg.Content {
		if b.Type == "text" {
			text.WriteString(b.Text)
		}
	}
	return &MessageResponse{
		ID:         msg.ID,
		Model:      string(msg.Model),
		Text:       text.String(),
		StopReason: string(msg.StopReason),
		Usage: TokenUsage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}
}
