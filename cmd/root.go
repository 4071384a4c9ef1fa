package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cvm-report/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "cvm-report",
	Short: "Fundamental analysis reports from CVM open data",
	Long:  "Downloads CVM quarterly (ITR) and reference-form (FRE) filings, extracts a company's latest financial statements, and writes an analyst report with a language model.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
