package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/brooks-street/outreach-pipeline/internal/model"
)

var runName string

var runCmd = &cobra.Command{
	Use:   "run <address>",
	Short: "Process a single building through the pipeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Orchestrator.RunOne(ctx, model.Candidate{
			Name:    runName,
			Address: args[0],
			Source:  "manual",
		})
		if err != nil {
			return eris.Wrap(err, "run candidate")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	runCmd.Flags().StringVar(&runName, "name", "", "building name, if known")
	rootCmd.AddCommand(runCmd)
}
