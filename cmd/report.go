package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/cvm-report/internal/chart"
	"github.com/sells-group/cvm-report/internal/report"
)

var (
	reportChartPath string
	reportFormat    string
)

var reportCmd = &cobra.Command{
	Use:   "report <cnpj> <doc_type> <year>",
	Short: "Generate an analyst report for a company",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), cfg, "report")
		if err != nil {
			return err
		}
		return runReport(cmd.Context(), cmd.OutOrStdout(), env, reportQuery{
			CNPJ:      args[0],
			DocType:   args[1],
			Year:      args[2],
			ChartPath: reportChartPath,
			Format:    reportFormat,
		})
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportChartPath, "chart", "", "write the financial summary chart to this PNG file")
	reportCmd.Flags().StringVar(&reportFormat, "format", "text", "output format (text, json)")
	rootCmd.AddCommand(reportCmd)
}

type reportQuery struct {
	CNPJ      string
	DocType   string
	Year      string
	ChartPath string
	Format    string
}

type reportOutput struct {
	CompanyCNPJ      string             `json:"company_cnpj"`
	Year             int                `json:"year"`
	Report           string             `json:"report"`
	FinancialSummary map[string]float64 `json:"financial_summary"`
}

func runReport(ctx context.Context, out io.Writer, env *appEnv, q reportQuery) error {
	if q.Format != "text" && q.Format != "json" {
		return eris.Errorf("unknown format %q (valid: text, json)", q.Format)
	}
	if env.Synthesizer == nil {
		return eris.Wrap(report.ErrNotConfigured, "report")
	}
	doc, year, err := parseFiling(q.DocType, q.Year)
	if err != nil {
		return err
	}

	res := env.Resolver.Resolve(ctx, string(doc), year, q.CNPJ, nil)
	if err := resolutionError(res, q.CNPJ, doc, year); err != nil {
		return err
	}

	rep, err := env.Synthesizer.Generate(ctx, report.Subject{
		CompanyID: q.CNPJ,
		DocType:   string(doc),
		Year:      year,
	}, res.Statements)
	if err != nil {
		return err
	}

	if q.ChartPath != "" {
		png, err := chart.RenderSummary(rep.FinancialSummary)
		if err != nil {
			return err
		}
		if err := os.WriteFile(q.ChartPath, png, 0o644); err != nil {
			return eris.Wrapf(err, "write chart %s", q.ChartPath)
		}
	}

	if q.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(reportOutput{
			CompanyCNPJ:      q.CNPJ,
			Year:             year,
			Report:           rep.Text,
			FinancialSummary: rep.FinancialSummary,
		}), "encode json")
	}
	formatReport(out, rep)
	return nil
}

// formatReport writes the prose report followed by the indicator table.
func formatReport(out io.Writer, rep *report.Report) {
	_, _ = fmt.Fprintln(out, rep.Text)
	_, _ = fmt.Fprintln(out)

	names := make([]string, 0, len(rep.FinancialSummary))
	for name := range rep.FinancialSummary {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "INDICATOR\tVALUE")
	_, _ = fmt.Fprintln(w, "---------\t-----")
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", name, chart.FormatBRL(rep.FinancialSummary[name]))
	}
	_ = w.Flush()
}
