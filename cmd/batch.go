package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-research/internal/orchestrator"
)

var batchForce bool

var batchCmd = &cobra.Command{
	Use:   "batch <lead-id>...",
	Short: "Run AI research for an explicit list of leads",
	Long:  "Runs the single-lead research path for each ID through the shared concurrency gate. Individual failures are isolated; the command waits for the whole batch and reports aggregate stats.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		stats := env.Orchestrator.ProcessQueue(ctx, args, orchestrator.Options{Force: batchForce}).Wait()

		zap.L().Info("batch finished",
			zap.Int("total", stats.Total),
			zap.Int("researched", stats.Researched),
			zap.Int("reused", stats.Reused),
			zap.Int("in_flight", stats.InFlight),
			zap.Int("failed", stats.Failed),
		)

		if stats.Failed > 0 {
			return eris.Errorf("batch: %d of %d leads failed", stats.Failed, stats.Total)
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().BoolVar(&batchForce, "force", false, "refresh even if good packets already exist")
	rootCmd.AddCommand(batchCmd)
}
