package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/brooks-street/outreach-pipeline/internal/model"
)

var (
	batchRegionsFile string
	batchLimit       int
)

// regionsFile is the on-disk shape of a batch region list.
type regionsFile struct {
	Regions []model.Region `yaml:"regions"`
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Discover and process all buildings in the configured regions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		regions, err := loadRegions(batchRegionsFile)
		if err != nil {
			return err
		}
		if len(regions) == 0 {
			return eris.Errorf("no regions in %s", batchRegionsFile)
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		zap.L().Info("starting batch",
			zap.Int("regions", len(regions)),
			zap.Int("limit", batchLimit))

		result, err := env.Orchestrator.RunBatch(ctx, regions, batchLimit)
		if err != nil {
			return eris.Wrap(err, "run batch")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func loadRegions(path string) ([]model.Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read regions file %s", path)
	}
	var f regionsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "parse regions file %s", path)
	}
	return f.Regions, nil
}

func init() {
	batchCmd.Flags().StringVar(&batchRegionsFile, "regions", "regions.yaml", "YAML file listing regions to scan")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "cap on candidates processed (0 = no cap)")
	rootCmd.AddCommand(batchCmd)
}
