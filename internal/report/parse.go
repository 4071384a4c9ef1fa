package report

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

type rawReport struct {
	Report           *string        `json:"report"`
	FinancialSummary map[string]any `json:"financial_summary"`
}

// decodeLenient tries strict JSON first, then json-repair, then Hjson.
func decodeLenient(text string) (*rawReport, error) {
	text = stripCodeFence(text)

	var out rawReport
	if err := json.Unmarshal([]byte(text), &out); err == nil {
		return &out, nil
	}

	if repaired, err := jsonrepair.RepairJSON(text); err == nil {
		out = rawReport{}
		if err := json.Unmarshal([]byte(repaired), &out); err == nil {
			zap.L().Debug("model answer needed json repair")
			return &out, nil
		}
	}

	var generic map[string]any
	if err := hjson.Unmarshal([]byte(text), &generic); err == nil {
		data, err := json.Marshal(generic)
		if err == nil {
			out = rawReport{}
			if err := json.Unmarshal(data, &out); err == nil {
				zap.L().Debug("model answer parsed as hjson")
				return &out, nil
			}
		}
	}

	return nil, eris.Wrap(ErrBadResponse, "answer is not a JSON object")
}

// stripCodeFence removes a surrounding ```json fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func parseReport(text string) (*Report, error) {
	raw, err := decodeLenient(text)
	if err != nil {
		return nil, err
	}
	if raw.Report == nil || strings.TrimSpace(*raw.Report) == "" {
		return nil, eris.Wrap(ErrBadResponse, "missing report")
	}
	if raw.FinancialSummary == nil {
		return nil, eris.Wrap(ErrBadResponse, "missing financial_summary")
	}

	summary := make(map[string]float64, len(raw.FinancialSummary))
	for name, v := range raw.FinancialSummary {
		f, ok := toFloat(v)
		if !ok {
			zap.L().Warn("dropping non-numeric summary indicator", zap.String("indicator", name), zap.Any("value", v))
			continue
		}
		summary[name] = f
	}

	return &Report{Text: *raw.Report, FinancialSummary: summary}, nil
}

// toFloat converts a summary value to float64. Strings may carry a "R$"
// prefix and Brazilian thousands/decimal separators.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x) && !math.IsInf(x, 0)
	case string:
		s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(x), "R$"))
		if s == "" {
			return 0, false
		}
		if strings.Contains(s, ",") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
