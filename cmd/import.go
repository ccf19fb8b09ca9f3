package main

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-research/internal/leadimport"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import leads from a CSV or XLSX file",
	Long:  "Creates leads from a spreadsheet, skipping rows whose email already exists. Small imports auto-queue research and the command waits for it to finish; imports above the configured threshold need an explicit 'batch' run instead.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := args[0]

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var result *leadimport.Result
		switch strings.ToLower(filepath.Ext(path)) {
		case ".csv":
			result, err = env.Importer.ImportCSV(ctx, path)
		case ".xlsx":
			result, err = env.Importer.ImportXLSX(ctx, path)
		default:
			return eris.Errorf("unsupported file type: %s (want .csv or .xlsx)", path)
		}
		if err != nil {
			return eris.Wrap(err, "import leads")
		}

		zap.L().Info("import finished",
			zap.String("file", path),
			zap.Int("created", len(result.CreatedIDs)),
			zap.Int("skipped", result.Skipped),
			zap.Bool("requires_approval", result.RequiresApproval),
		)

		if result.RequiresApproval {
			zap.L().Warn("research not started: run 'lead-research batch' with these lead IDs to approve",
				zap.Strings("lead_ids", result.CreatedIDs),
			)
			return nil
		}

		// The process exits when this command returns, so auto-queued
		// research must be joined here; fire-and-forget is only sound in
		// the long-lived serve process.
		if result.Handle != nil {
			stats := result.Handle.Wait()
			zap.L().Info("auto-queued research finished",
				zap.Int("researched", stats.Researched),
				zap.Int("reused", stats.Reused),
				zap.Int("failed", stats.Failed),
			)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
