package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), "test-key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return client
}

func writeCandidate(w http.ResponseWriter, parts ...string) {
	jsonParts := make([]map[string]any, len(parts))
	for i, p := range parts {
		jsonParts[i] = map[string]any{"text": p}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"candidates": []map[string]any{{
			"content":      map[string]any{"role": "model", "parts": jsonParts},
			"finishReason": "STOP",
		}},
		"usageMetadata": map[string]any{
			"promptTokenCount":     120,
			"candidatesTokenCount": 45,
		},
	})
}

func TestGenerate_Success(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "gemini-test:generateContent"), r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gen, _ := body["generationConfig"].(map[string]any)
		assert.Equal(t, "application/json", gen["responseMimeType"])
		assert.Contains(t, body, "systemInstruction")

		writeCandidate(w, `{"report": "ok",`, ` "financial_summary": {}}`)
	})

	resp, err := client.Generate(context.Background(), Request{
		Model:       "gemini-test",
		System:      "Responda em JSON.",
		Prompt:      "Analise os dados.",
		JSON:        true,
		Temperature: genai.Ptr(float32(0.2)),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"report": "ok", "financial_summary": {}}`, resp.Text)
	assert.Equal(t, "gemini-test", resp.Model)
	assert.Equal(t, "STOP", resp.FinishReason)
	assert.Equal(t, int64(120), resp.Usage.InputTokens)
	assert.Equal(t, int64(45), resp.Usage.OutputTokens)
}

func TestGenerate_DefaultModel(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, DefaultModel)
		writeCandidate(w, "texto")
	})

	resp, err := client.Generate(context.Background(), Request{Prompt: "oi"})
	require.NoError(t, err)
	assert.Equal(t, "texto", resp.Text)
	assert.Equal(t, DefaultModel, resp.Model)
}

func TestGenerate_NoCandidates(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates": []}`))
	})

	_, err := client.Generate(context.Background(), Request{Prompt: "oi"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no content generated")
}

func TestGenerate_APIError(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"code": 500, "message": "boom", "status": "INTERNAL"}}`))
	})

	_, err := client.Generate(context.Background(), Request{Prompt: "oi"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "gemini: generate content")
}
