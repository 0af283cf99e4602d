package qc

import (
	"github.com/sirupsen/logrus"

	"github.com/aquasim/appdate-engine/label"
)

// ScenarioDates resolves a scenario name to its emergence and harvest
// dates. The run package's scenario readers satisfy this.
type ScenarioDates interface {
	Dates(scenario string) (emergence, harvest label.Day, err error)
}

// BatchReport is the outcome of validating a whole batch: one Result per
// validated run, plus the runs that could not be validated.
type BatchReport struct {
	Results []Result
	Skipped []string
}

// AllValid reports whether every validated run passed every check.
func (b *BatchReport) AllValid() bool {
	for i := range b.Results {
		if !b.Results[i].Valid() {
			return false
		}
	}
	return true
}

// ValidateBatch checks every run of a batch against the label table.
// Records arrive as authored (lbs/acre) and are normalized here to match
// the batch file's kg/ha amounts. Runs with an unknown descriptor or an
// unreadable scenario are skipped with a warning, never failed.
func ValidateBatch(runs []RunInput, records []label.Record, scn ScenarioDates, log logrus.FieldLogger) BatchReport {
	byDescriptor := make(map[string]*label.Record, len(records))
	for i := range records {
		normalized := records[i].Normalize()
		byDescriptor[records[i].Descriptor] = &normalized
	}

	var report BatchReport
	for _, run := range runs {
		rec, ok := byDescriptor[run.Descriptor]
		if !ok {
			if log != nil {
				log.WithField("descriptor", run.Descriptor).
					Warn("run descriptor not in agronomic practices table, skipped")
			}
			report.Skipped = append(report.Skipped, run.RunName)
			continue
		}

		emergence, harvest, err := scn.Dates(run.Scenario)
		if err != nil {
			if log != nil {
				log.WithField("scenario", run.Scenario).WithError(err).
					Warn("scenario dates unavailable, run skipped")
			}
			report.Skipped = append(report.Skipped, run.RunName)
			continue
		}

		report.Results = append(report.Results, ValidateRun(run, rec, emergence, harvest))
	}
	return report
}
