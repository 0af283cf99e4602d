package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aquasim/appdate-engine/config"
	"github.com/aquasim/appdate-engine/run"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Expand the label table into a batch file",
	Long: `Reads the label table, fans each record out across HUC2 regions,
aquatic bins, distances, transport mechanisms and depths, assigns
application dates for every run, and writes the batch file to the
output directory.`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	setLogLevel(cfg.Logging)

	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	fate, err := loadFateParams(cfg.Paths.FateParamsCSV)
	if err != nil {
		return err
	}

	logger.WithField("records", len(eng.records)).Info("expanding label table")
	res := eng.expander.Expand(eng.records)

	outPath := filepath.Join(cfg.Paths.OutputDir, fmt.Sprintf("%s_batch_file.csv", cfg.RunID))
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}
	defer out.Close()

	if err := run.WriteBatchCSV(out, res.Rows, fate, nil); err != nil {
		return err
	}

	for _, base := range res.MissingScenarios {
		logger.WithField("scenario", base).Warn("scenario file missing, runs skipped")
	}
	for _, profile := range res.MissingProfiles {
		logger.WithField("profile", profile).Warn("drift profile missing, runs skipped")
	}
	for _, name := range res.UnreachedAnnualMax {
		logger.WithField("run", name).Warn("annual maximum amount not reached")
	}

	logger.WithFields(logrus.Fields{
		"runs": len(res.Rows),
		"file": outPath,
	}).Info("batch file written")
	return nil
}
