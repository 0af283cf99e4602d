/*
Package config loads and validates run configuration.

PURPOSE:
  One YAML file drives a whole generation run: input file locations,
  which bins, distances and depths to expand, and how the scheduler
  picks dates. Defaults are applied before unmarshalling so a sparse
  file still yields a usable configuration.

SEE ALSO:
  - run: consumes the expansion options built here
  - schedule: consumes the date prioritization mode
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/creasty/defaults"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/aquasim/appdate-engine/run"
	"github.com/aquasim/appdate-engine/schedule"
)

var (
	// ErrInvalidSeed is returned when the random seed is not an integer.
	ErrInvalidSeed = errors.New("random seed must be an integer")
	// ErrInvalidConfig wraps validation failures.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Date prioritization settings.
const (
	PrioritizeMaxRate      = "maxrate"
	PrioritizeWettestMonth = "wetmonth"
)

// Paths locates every input and output file for a run.
type Paths struct {
	LabelTableCSV   string `yaml:"labelTable"`
	DriftTableCSV   string `yaml:"driftTable"`
	ScenarioDir     string `yaml:"scenarioDir"`
	WettestMonthCSV string `yaml:"wettestMonthTable"`
	FateParamsCSV   string `yaml:"fateParams"`
	BatchCSV        string `yaml:"batchFile"`
	OutputDir       string `yaml:"outputDir" default:"."`
}

// MethodConfig selects the combinations to run for one application
// method. Distances and DriftOnly apply to surface methods; Depths apply
// to buried methods.
type MethodConfig struct {
	Distances []string `yaml:"distances,omitempty"`
	DriftOnly []string `yaml:"driftOnly,omitempty"`
	Depths    []int    `yaml:"depths,omitempty"`
}

// Config is the full run configuration.
type Config struct {
	RunID   string `yaml:"runId" default:"run"`
	Logging string `yaml:"logging" default:"info"`

	// Assessment selects the scenario file convention, esa or fifra.
	Assessment string `yaml:"assessment" default:"fifra"`

	RandomStartDates bool `yaml:"randomStartDates"`
	// RandomSeed fixes random day draws. Blank means time-seeded.
	RandomSeed string `yaml:"randomSeed"`
	// DatePrioritization is maxrate or wetmonth.
	DatePrioritization string `yaml:"datePrioritization" default:"maxrate"`

	Bins []int `yaml:"bins" default:"[4,7,10]"`

	// Methods is keyed by application method number.
	Methods map[int]MethodConfig `yaml:"methods"`
	// TBandFraction is the surface split for t-band runs.
	TBandFraction float64 `yaml:"tbandFraction" default:"0.5"`

	// LegacyRegions extends geography to Alaska, Hawaii and the
	// Caribbean HUC2 regions.
	LegacyRegions bool `yaml:"legacyRegions"`

	Paths Paths `yaml:"paths"`
}

// Load reads a configuration file, applying defaults first.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every enumerated setting against its known values.
func (c *Config) Validate() error {
	if c.RunID == "" {
		return fmt.Errorf("%w: runId is required", ErrInvalidConfig)
	}
	switch run.Assessment(c.Assessment) {
	case run.AssessmentESA, run.AssessmentFIFRA:
	default:
		return fmt.Errorf("%w: assessment %q, want esa or fifra", ErrInvalidConfig, c.Assessment)
	}
	switch c.DatePrioritization {
	case PrioritizeMaxRate, PrioritizeWettestMonth:
	default:
		return fmt.Errorf("%w: datePrioritization %q, want %s or %s",
			ErrInvalidConfig, c.DatePrioritization, PrioritizeMaxRate, PrioritizeWettestMonth)
	}
	for _, bin := range c.Bins {
		if !containsInt(run.AllBins, bin) {
			return fmt.Errorf("%w: unknown aquatic bin %d", ErrInvalidConfig, bin)
		}
	}
	for method, mc := range c.Methods {
		if !containsInt(run.AllAppMethods, method) {
			return fmt.Errorf("%w: unknown application method %d", ErrInvalidConfig, method)
		}
		for _, d := range mc.Distances {
			if !containsString(run.AllDistances, d) {
				return fmt.Errorf("%w: method %d: unknown distance %q", ErrInvalidConfig, method, d)
			}
		}
		for _, d := range mc.DriftOnly {
			if !containsString(run.AllDistances, d) {
				return fmt.Errorf("%w: method %d: unknown drift-only distance %q", ErrInvalidConfig, method, d)
			}
		}
		for _, d := range mc.Depths {
			if !containsInt(run.AllDepths, d) {
				return fmt.Errorf("%w: method %d: unknown depth %d", ErrInvalidConfig, method, d)
			}
		}
	}
	if _, err := c.Seed(); err != nil {
		return err
	}
	return nil
}

// Seed parses the configured random seed. Nil means no fixed seed.
func (c *Config) Seed() (*int64, error) {
	if c.RandomSeed == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(c.RandomSeed, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeed, c.RandomSeed)
	}
	return &v, nil
}

// Mode maps the date prioritization setting to a scheduling mode.
func (c *Config) Mode() schedule.Mode {
	if c.DatePrioritization == PrioritizeWettestMonth {
		return schedule.ModeWettestMonth
	}
	return schedule.ModeMaxRate
}

// ExpanderOptions assembles the expansion options. The caller supplies
// the FIFRA sorption class letter, derived from the scenario directory.
func (c *Config) ExpanderOptions(kocLetter string) (run.Options, error) {
	seed, err := c.Seed()
	if err != nil {
		return run.Options{}, err
	}

	opts := run.Options{
		Bins:          c.Bins,
		Distances:     make(map[int][]string),
		Depths:        make(map[int][]int),
		TBandFraction: decimal.NewFromFloat(c.TBandFraction),
		Assessment:    run.Assessment(c.Assessment),
		KocLetter:     kocLetter,

		Mode:             c.Mode(),
		RandomStartDates: c.RandomStartDates,
		Seed:             seed,
	}
	opts.Foliar = run.FoliarSelections{
		Distances: make(map[string]bool),
		DriftOnly: make(map[string]bool),
	}
	for method, mc := range c.Methods {
		if len(mc.Distances) > 0 {
			opts.Distances[method] = mc.Distances
		}
		if len(mc.Depths) > 0 {
			opts.Depths[method] = mc.Depths
		}
		if method == run.FoliarAppMethod {
			for _, d := range mc.Distances {
				opts.Foliar.Distances[d] = true
			}
			for _, d := range mc.DriftOnly {
				opts.Foliar.DriftOnly[d] = true
			}
		}
	}
	return opts, nil
}

func containsInt(list []int, n int) bool {
	for _, v := range list {
		if v == n {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
