package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-research/internal/model"
	"github.com/sells-group/lead-research/internal/store"
)

var (
	leadsStatus string
	leadsLimit  int
	leadsOffset int
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "List leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		leads, err := st.ListLeads(ctx, store.LeadFilter{
			Status: model.LeadStatus(leadsStatus),
			Limit:  leadsLimit,
			Offset: leadsOffset,
		})
		if err != nil {
			return eris.Wrap(err, "list leads")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(leads)
	},
}

func init() {
	leadsCmd.Flags().StringVar(&leadsStatus, "status", "", "filter by pipeline status")
	leadsCmd.Flags().IntVar(&leadsLimit, "limit", 0, "maximum leads to return")
	leadsCmd.Flags().IntVar(&leadsOffset, "offset", 0, "offset into the result set")
	rootCmd.AddCommand(leadsCmd)
}
