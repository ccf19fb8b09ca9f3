package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-research/internal/orchestrator"
)

var researchForce bool

var researchCmd = &cobra.Command{
	Use:   "research <lead-id>",
	Short: "Run AI research for a single lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Orchestrator.ProcessLead(ctx, args[0], orchestrator.Options{Force: researchForce})
		if err != nil {
			return eris.Wrap(err, "research lead")
		}

		zap.L().Info("research finished",
			zap.String("lead_id", args[0]),
			zap.String("status", string(result.Status)),
			zap.Bool("reused", result.Reused),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Packet)
	},
}

func init() {
	researchCmd.Flags().BoolVar(&researchForce, "force", false, "refresh even if a good packet already exists")
	rootCmd.AddCommand(researchCmd)
}
