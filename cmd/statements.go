package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/cvm-report/internal/cvm"
)

var (
	statementNames  []string
	statementFormat string
)

var statementsCmd = &cobra.Command{
	Use:   "statements <cnpj> <doc_type> <year>",
	Short: "Print a company's latest statement rows",
	Long:  "Resolves the company's rows for each statement (downloading the archive when needed), keeping the latest version and period per account.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), cfg, "fetch")
		if err != nil {
			return err
		}
		return runStatements(cmd.Context(), cmd.OutOrStdout(), env, statementsQuery{
			CNPJ:       args[0],
			DocType:    args[1],
			Year:       args[2],
			Statements: statementNames,
			Format:     statementFormat,
		})
	},
}

func init() {
	statementsCmd.Flags().StringSliceVar(&statementNames, "statements", nil, "statements to include (BPA, BPP, DRE, DFC_MI); default all")
	statementsCmd.Flags().StringVar(&statementFormat, "format", "json", "output format (json, yaml)")
	rootCmd.AddCommand(statementsCmd)
}

type statementsQuery struct {
	CNPJ       string
	DocType    string
	Year       string
	Statements []string
	Format     string
}

type statementsOutput struct {
	CompanyCNPJ string                   `json:"company_cnpj" yaml:"company_cnpj"`
	DocType     string                   `json:"doc_type" yaml:"doc_type"`
	Year        int                      `json:"year" yaml:"year"`
	Statements  cvm.ResolvedStatementSet `json:"statements" yaml:"statements"`
}

func runStatements(ctx context.Context, out io.Writer, env *appEnv, q statementsQuery) error {
	if q.Format != "json" && q.Format != "yaml" {
		return eris.Errorf("unknown format %q (valid: json, yaml)", q.Format)
	}
	doc, year, err := parseFiling(q.DocType, q.Year)
	if err != nil {
		return err
	}

	res := env.Resolver.Resolve(ctx, string(doc), year, q.CNPJ, q.Statements)
	if err := resolutionError(res, q.CNPJ, doc, year); err != nil {
		return err
	}

	return writeStatements(out, q.Format, statementsOutput{
		CompanyCNPJ: q.CNPJ,
		DocType:     string(doc),
		Year:        year,
		Statements:  res.Statements,
	})
}

func writeStatements(out io.Writer, format string, v statementsOutput) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return enc.Close()
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode json")
}

// resolutionError turns a non-OK resolution into an error.
func resolutionError(res *cvm.Resolution, cnpj string, doc cvm.DocType, year int) error {
	switch res.Status {
	case cvm.StatusOK:
		return nil
	case cvm.StatusFetchFailed:
		if res.Err != nil {
			return eris.Wrapf(res.Err, "fetch %s %d", doc, year)
		}
		return eris.Errorf("fetch %s %d failed", doc, year)
	default:
		return eris.Errorf("no financial data for %s in %s %d", cnpj, doc, year)
	}
}
