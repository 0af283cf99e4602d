package cmd

import (
	"fmt"
	"os"

	"github.com/aquasim/appdate-engine/config"
	"github.com/aquasim/appdate-engine/label"
	"github.com/aquasim/appdate-engine/run"
)

// engine bundles everything a command needs to expand or validate.
type engine struct {
	cfg       *config.Config
	records   []label.Record
	expander  *run.Expander
	scenarios *run.FileScenarios
}

// buildEngine loads the configured input files and wires the expander.
func buildEngine(cfg *config.Config) (*engine, error) {
	records, err := loadLabelTable(cfg.Paths.LabelTableCSV)
	if err != nil {
		return nil, err
	}

	driftFile, err := os.Open(cfg.Paths.DriftTableCSV)
	if err != nil {
		return nil, fmt.Errorf("drift table: %w", err)
	}
	defer driftFile.Close()
	drift, err := run.ParseDriftTableCSV(driftFile)
	if err != nil {
		return nil, err
	}

	kocLetter := ""
	if run.Assessment(cfg.Assessment) == run.AssessmentFIFRA {
		if kocLetter, err = run.KocLetterForDir(cfg.Paths.ScenarioDir); err != nil {
			return nil, err
		}
	}

	opts, err := cfg.ExpanderOptions(kocLetter)
	if err != nil {
		return nil, err
	}
	if cfg.DatePrioritization == config.PrioritizeWettestMonth {
		wettestFile, err := os.Open(cfg.Paths.WettestMonthCSV)
		if err != nil {
			return nil, fmt.Errorf("wettest month table: %w", err)
		}
		defer wettestFile.Close()
		if opts.WettestMonths, err = config.LoadWettestMonths(wettestFile); err != nil {
			return nil, err
		}
	}

	scenarios := &run.FileScenarios{
		Dir:        cfg.Paths.ScenarioDir,
		Assessment: run.Assessment(cfg.Assessment),
	}

	return &engine{
		cfg:       cfg,
		records:   records,
		scenarios: scenarios,
		expander: &run.Expander{
			Geography: run.DefaultGeography(cfg.LegacyRegions),
			Drift:     drift,
			Scenarios: scenarios,
			Options:   opts,
			Log:       logger,
		},
	}, nil
}

func loadLabelTable(path string) ([]label.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("label table: %w", err)
	}
	defer f.Close()

	return label.ParseTableCSV(f)
}

func loadFateParams(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fate parameters: %w", err)
	}
	defer f.Close()

	return run.ParseFateParamsCSV(f)
}
