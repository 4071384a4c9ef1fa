package report

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cvm-report/internal/config"
	"github.com/sells-group/cvm-report/pkg/anthropic"
	anthropicmocks "github.com/sells-group/cvm-report/pkg/anthropic/mocks"
	"github.com/sells-group/cvm-report/pkg/gemini"
	geminimocks "github.com/sells-group/cvm-report/pkg/gemini/mocks"
)

func TestGeminiGenerator(t *testing.T) {
	client := geminimocks.NewMockClient(t)
	client.EXPECT().
		Generate(mock.Anything, mock.MatchedBy(func(req gemini.Request) bool {
			return req.Model == "gemini-2.5-flash" && req.JSON && req.System == "sys" && req.Prompt == "user"
		})).
		Return(&gemini.Response{Text: `{"report": "ok"}`}, nil)

	text, err := NewGeminiGenerator(client, "gemini-2.5-flash").Generate(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, `{"report": "ok"}`, text)
}

func TestGeminiGenerator_Error(t *testing.T) {
	client := geminimocks.NewMockClient(t)
	client.EXPECT().Generate(mock.Anything, mock.Anything).Return(nil, eris.New("unavailable"))

	_, err := NewGeminiGenerator(client, "").Generate(context.Background(), "sys", "user")
	assert.Error(t, err)
}

func TestAnthropicGenerator(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	client.EXPECT().
		CreateMessage(mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
			return req.Model == "claude-sonnet-4-5-20250929" &&
				req.MaxTokens == 8192 &&
				req.System == "sys" && req.Prompt == "user"
		})).
		Return(&anthropic.MessageResponse{Text: `{"report": "ok", "financial_summary": {}}`}, nil)

	text, err := NewAnthropicGenerator(client, "claude-sonnet-4-5-20250929", 0).Generate(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, `{"report": "ok", "financial_summary": {}}`, text)
}

func TestAnthropicGenerator_EndToEnd(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	client.EXPECT().CreateMessage(mock.Anything, mock.Anything).Return(&anthropic.MessageResponse{
		Text:       `{"report": "Análise", "financial_summary": {"Ativo Total": 10}}`,
		StopReason: "max_tokens",
	}, nil)

	s := NewSynthesizer(NewAnthropicGenerator(client, "claude-sonnet-4-5-20250929", 1024))
	rep, err := s.Generate(context.Background(), testSubject, testSet())
	require.NoError(t, err)
	assert.Equal(t, "Análise", rep.Text)
	assert.InDelta(t, 10.0, rep.FinancialSummary["Ativo Total"], 0.001)
}

func TestNewGenerator(t *testing.T) {
	ctx := context.Background()

	cfg := &config.Config{}
	cfg.LLM.Provider = config.ProviderGemini
	_, err := NewGenerator(ctx, cfg)
	assert.ErrorIs(t, err, ErrNotConfigured)

	cfg.Gemini.Key = "g-key"
	gen, err := NewGenerator(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &geminiGenerator{}, gen)

	cfg.LLM.Provider = config.ProviderAnthropic
	_, err = NewGenerator(ctx, cfg)
	assert.ErrorIs(t, err, ErrNotConfigured)

	cfg.Anthropic.Key = "sk-ant"
	gen, err = NewGenerator(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &anthropicGenerator{}, gen)

	cfg.LLM.Provider = "openai"
	_, err = NewGenerator(ctx, cfg)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
