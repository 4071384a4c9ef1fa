// Package report turns resolved financial statements into an analyst report
// by prompting a language model.
package report

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cvm-report/internal/cvm"
)

var (
	// ErrNoData is returned when the statement set is empty.
	ErrNoData = eris.New("report: no statements to analyse")
	// ErrGeneration is returned when the model call fails.
	ErrGeneration = eris.New("report: generation failed")
	// ErrBadResponse is returned when the model answer lacks report or financial_summary.
	ErrBadResponse = eris.New("report: malformed model response")
	// ErrPromptTooLarge is returned when the statement data exceeds the prompt budget.
	ErrPromptTooLarge = eris.New("report: prompt too large")
	// ErrNotConfigured is returned when no usable LLM provider is configured.
	ErrNotConfigured = eris.New("report: llm provider not configured")
)

// Report is the model's prose analysis plus named numeric indicators.
type Report struct {
	Text             string             `json:"report" yaml:"report"`
	FinancialSummary map[string]float64 `json:"financial_summary" yaml:"financial_summary"`
}

// Synthesizer generates reports from resolved statements.
type Synthesizer struct {
	gen            Generator
	timeout        time.Duration
	maxPromptBytes int
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithTimeout bounds each model call.
func WithTimeout(d time.Duration) Option {
	return func(s *Synthesizer) { s.timeout = d }
}

// WithMaxPromptBytes rejects prompts larger than n bytes. Zero disables the check.
func WithMaxPromptBytes(n int) Option {
	return func(s *Synthesizer) { s.maxPromptBytes = n }
}

// NewSynthesizer creates a Synthesizer over gen.
func NewSynthesizer(gen Generator, opts ...Option) *Synthesizer {
	s := &Synthesizer{gen: gen, timeout: 2 * time.Minute}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Generate asks the model for an analysis of set. The answer must be a JSON
// object with "report" and "financial_summary"; malformed JSON is repaired
// before decoding.
func (s *Synthesizer) Generate(ctx context.Context, subject Subject, set cvm.ResolvedStatementSet) (*Report, error) {
	if len(set) == 0 {
		return nil, ErrNoData
	}
	log := zap.L().With(
		zap.String("component", "report"),
		zap.String("cnpj", subject.CompanyID),
		zap.Int("year", subject.Year),
	)

	prompt, err := buildPrompt(subject, set)
	if err != nil {
		return nil, err
	}
	if s.maxPromptBytes > 0 && len(prompt) > s.maxPromptBytes {
		return nil, eris.Wrapf(ErrPromptTooLarge, "%d bytes (limit %d)", len(prompt), s.maxPromptBytes)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	log.Info("requesting analysis", zap.Int("prompt_bytes", len(prompt)), zap.Int("statements", len(set)))
	start := time.Now()
	text, err := s.gen.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		log.Error("model call failed", zap.Error(err))
		return nil, eris.Wrapf(ErrGeneration, "%v", err)
	}

	rep, err := parseReport(text)
	if err != nil {
		log.Error("unusable model answer", zap.Error(err), zap.Int("answer_bytes", len(text)))
		return nil, err
	}

	log.Info("analysis received",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("indicators", len(rep.FinancialSummary)),
	)
	return rep, nil
}
