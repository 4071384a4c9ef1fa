// Package chart renders financial summaries as PNG bar charts.
package chart

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Title is the heading drawn on summary charts.
const Title = "Resumo Financeiro da Empresa"

// ErrEmptySummary is returned when there is nothing to plot.
var ErrEmptySummary = eris.New("chart: empty financial summary")

const (
	barWidth   = 90
	barSpacing = 40
	minWidth   = 900
	height     = 560
)

// viridis samples, darkest first.
var palette = []string{"440154", "46327e", "365c8d", "277f8e", "1fa187", "4ac16d", "a0da39", "fde725"}

// FormatBRL formats a value in reais with B/M/k suffixes.
func FormatBRL(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("R$ %.2fB", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("R$ %.2fM", v/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("R$ %.2fk", v/1e3)
	default:
		return fmt.Sprintf("R$ %.2f", v)
	}
}

// RenderSummary draws one bar per indicator, sorted by name, each labelled
// with its formatted value. Returns raw PNG bytes.
func RenderSummary(summary map[string]float64) ([]byte, error) {
	if len(summary) == 0 {
		return nil, ErrEmptySummary
	}

	names := make([]string, 0, len(summary))
	for name, v := range summary {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, eris.Errorf("chart: indicator %q is not a finite number", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	lo, hi := 0.0, 0.0
	bars := make([]chart.Value, len(names))
	for i, name := range names {
		v := summary[name]
		lo, hi = math.Min(lo, v), math.Max(hi, v)
		bars[i] = chart.Value{
			Label: name + " " + FormatBRL(v),
			Value: v,
			Style: chart.Style{
				FillColor:   drawing.ColorFromHex(palette[i%len(palette)]),
				StrokeColor: drawing.ColorFromHex(palette[i%len(palette)]),
				StrokeWidth: 1,
			},
		}
	}
	if lo == hi {
		hi = 1
	}
	pad := (hi - lo) * 0.1

	width := len(bars)*(barWidth+barSpacing) + 200
	if width < minWidth {
		width = minWidth
	}

	graph := chart.BarChart{
		Title:  Title,
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 60, Left: 20, Right: 20, Bottom: 20},
		},
		BarWidth:     barWidth,
		BarSpacing:   barSpacing,
		UseBaseValue: true,
		BaseValue:    0,
		XAxis: chart.Style{
			FontSize: 9,
			TextWrap: chart.TextWrapWord,
		},
		YAxis: chart.YAxis{
			Name: "Valor (R$)",
			Range: &chart.ContinuousRange{
				Min: lo - pad,
				Max: hi + pad,
			},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return FormatBRL(f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, eris.Wrap(err, "chart: render")
	}
	return buf.Bytes(), nil
}
