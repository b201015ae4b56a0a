package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/brooks-street/outreach-pipeline/internal/store"
)

var contactCmd = &cobra.Command{
	Use:   "contact <record-id>",
	Short: "Re-run contact resolution for a persisted record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		resolved, err := env.Orchestrator.ResolveFor(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "resolve contact for %s", args[0])
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resolved)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted building records",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		filter := store.RecordFilter{Limit: listLimit}
		if cmd.Flags().Changed("approved") {
			filter.Approved = &listApproved
		}
		if cmd.Flags().Changed("verified") {
			filter.Verified = &listVerified
		}

		records, err := env.Store.ListRecords(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "list records")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	},
}

var (
	listLimit    int
	listApproved bool
	listVerified bool
)

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "max records to list")
	listCmd.Flags().BoolVar(&listApproved, "approved", false, "filter by approval state")
	listCmd.Flags().BoolVar(&listVerified, "verified", false, "filter by contact verification state")
	rootCmd.AddCommand(contactCmd)
	rootCmd.AddCommand(listCmd)
}
