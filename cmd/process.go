package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var processCmd = &cobra.Command{
	Use:   "process <doc_type> <year>",
	Short: "Download and extract the archive for a document type and year",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), cfg, "fetch")
		if err != nil {
			return err
		}
		return runProcess(cmd.Context(), cmd.OutOrStdout(), env, args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
}

func runProcess(ctx context.Context, out io.Writer, env *appEnv, docArg, yearArg string) error {
	doc, year, err := parseFiling(docArg, yearArg)
	if err != nil {
		return err
	}

	name, err := env.Locator.Find(ctx, doc, year)
	if err != nil {
		return eris.Wrapf(err, "process %s %d", doc, year)
	}
	path, err := env.Materializer.Materialize(ctx, doc, name)
	if err != nil {
		return eris.Wrapf(err, "process %s", name)
	}

	_, _ = fmt.Fprintf(out, "extracted %s into %s\n", name, path)
	return nil
}
