package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"boxity-analyzer/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "boxity-analyzer",
	Short: "Package tamper detection and TIS scoring",
	Long:  "Compares baseline and current package photos with a Gemini ensemble, validates the output against a JSON schema, falls back to classical CV and scores Tamper Integrity (TIS).",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return cfg.Validate()
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
