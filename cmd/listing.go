package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/cvm-report/internal/cvm"
)

var listingCmd = &cobra.Command{
	Use:   "listing <doc_type>",
	Short: "List the archives the CVM portal advertises for ITR or FRE",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), cfg, "fetch")
		if err != nil {
			return err
		}
		return runListing(cmd.Context(), cmd.OutOrStdout(), env, args[0])
	},
}

func init() {
	rootCmd.AddCommand(listingCmd)
}

func runListing(ctx context.Context, out io.Writer, env *appEnv, docType string) error {
	archives, err := env.Locator.List(ctx, docType)
	if err != nil {
		return eris.Wrap(err, "listing")
	}
	formatListing(out, archives)
	return nil
}

// formatListing writes the archives and the year each one maps to.
func formatListing(out io.Writer, archives []string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ARCHIVE\tYEAR")
	_, _ = fmt.Fprintln(w, "-------\t----")
	for _, name := range archives {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", name, cvm.ArchiveYear(name))
	}
	_ = w.Flush()
}
