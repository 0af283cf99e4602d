package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aquasim/appdate-engine/config"
	"github.com/aquasim/appdate-engine/qc"
)

// ErrBatchNotCompliant is returned when any run fails validation.
var ErrBatchNotCompliant = errors.New("batch has non-compliant runs")

//nolint:gochecknoglobals // Cobra commands are typically global
var qcCmd = &cobra.Command{
	Use:   "qc",
	Short: "Validate a batch file against the label table",
	Long: `Reads a batch file, checks every run's application dates and
rates against the label's annual, interval, minimum-interval and
pre-harvest constraints, and writes a per-run report to the output
directory. Exits non-zero if any run fails.`,
	RunE: runQC,
}

func init() {
	rootCmd.AddCommand(qcCmd)
}

func runQC(cmd *cobra.Command, _ []string) error {
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

	batchFile, err := os.Open(cfg.Paths.BatchCSV)
	if err != nil {
		return fmt.Errorf("batch file: %w", err)
	}
	defer batchFile.Close()

	runs, err := qc.ParseBatchCSV(batchFile)
	if err != nil {
		return err
	}
	logger.WithField("runs", len(runs)).Info("validating batch file")

	report := qc.ValidateBatch(runs, eng.records, eng.scenarios, logger)

	outPath := filepath.Join(cfg.Paths.OutputDir, fmt.Sprintf("%s_qc_results.csv", cfg.RunID))
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}
	defer out.Close()

	if err := qc.WriteResultsCSV(out, report.Results); err != nil {
		return err
	}

	failed := 0
	for i := range report.Results {
		if !report.Results[i].Valid() {
			failed++
		}
	}
	logger.WithFields(logrus.Fields{
		"runs":    len(report.Results),
		"failed":  failed,
		"skipped": len(report.Skipped),
		"file":    outPath,
	}).Info("qc report written")

	if !report.AllValid() {
		return ErrBatchNotCompliant
	}
	return nil
}
