package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-research/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "lead-research",
	Short: "Lead research orchestration for the sales CRM",
	Long:  "Tracks sales leads, runs AI-generated pre-call research through a deduplicated, concurrency-bounded pipeline, and merges discovered facts back onto lead records.",
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
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
