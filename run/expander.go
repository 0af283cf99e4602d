package run

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/aquasim/appdate-engine/label"
	"github.com/aquasim/appdate-engine/schedule"
)

// =============================================================================
// EXPANDER - Label record to run combination fan-out
// =============================================================================

// unreachedTolerance pads the applied total before comparing against the
// annual maximum so rounding never flags a fully spent budget.
var unreachedTolerance = decimal.NewFromFloat(0.01)

// Options selects which combinations each label record expands into.
type Options struct {
	// Bins are the aquatic bins to model.
	Bins []int

	// Distances lists the selected offset distances per application
	// method. Buried methods ignore the selection and run at 000m.
	Distances map[int][]string

	// Foliar holds the per-distance transport selections for the foliar
	// application method.
	Foliar FoliarSelections

	// Depths lists the selected incorporation depths per buried
	// application method. Methods 1 and 2 take no depth.
	Depths map[int][]int

	// TBandFraction is the surface split fraction for t-band runs.
	TBandFraction decimal.Decimal

	Assessment Assessment
	// KocLetter is the sorption class letter for FIFRA scenario names.
	KocLetter string

	// Scheduling.
	Mode             schedule.Mode
	RandomStartDates bool
	Seed             *int64
	// WettestMonths ranks months per HUC2, wettest first.
	WettestMonths map[string][]time.Month
}

// distancesFor returns the offset distances to run for a method.
func (o *Options) distancesFor(method int) []string {
	if isBuried(method) {
		return []string{"000m"}
	}
	return o.Distances[method]
}

// depthsFor returns the incorporation depths to run for a method and
// whether a t-band split applies. Non-buried methods run depthless; the
// t-band method does not support the shallowest 2cm depth.
func (o *Options) depthsFor(method int) (depths []int, tband bool) {
	if !isBuried(method) {
		return []int{noDepth}, false
	}
	allowed := AllDepths
	if method == TBandAppMethod {
		allowed = AllDepths[1:]
	}
	for _, d := range o.Depths[method] {
		if containsInt(allowed, d) {
			depths = append(depths, d)
		}
	}
	return depths, method == TBandAppMethod
}

// noDepth marks runs whose application method takes no incorporation
// depth. The batch writer emits an empty cell for it.
const noDepth = 0

// BatchRow is one fully expanded run: a combination plus its scheduled
// applications. Depth and TBand are zero-valued when the application
// method takes neither.
type BatchRow struct {
	Descriptor string
	RunName    string
	HUC2       string
	Scenario   string
	Bin        int

	AppMethod  int
	Depth      int
	TBand      decimal.Decimal
	HasTBand   bool
	Efficiency decimal.Decimal
	Drift      decimal.Decimal

	Applications []schedule.Application
}

// Result carries the expanded rows and everything that was skipped or
// flagged along the way. Skips are never fatal.
type Result struct {
	Rows []BatchRow

	// MissingScenarios lists scenario bases whose files could not be
	// read, one entry per crop-HUC pair.
	MissingScenarios []string

	// MissingProfiles lists bin-profile rows absent from the drift table.
	MissingProfiles []string

	// UnreachedAnnualMax lists runs whose schedule left annual amount
	// budget unspent.
	UnreachedAnnualMax []string
}

// Expander fans each label record out across HUCs, bins, distances,
// transport mechanisms and depths, scheduling application dates for every
// combination.
type Expander struct {
	Geography *Geography
	Drift     *DriftTable
	Scenarios ScenarioDates
	Options   Options

	Log logrus.FieldLogger

	// Progress, when set, is called with each run name as it is built.
	Progress func(runName string)
}

// Expand builds the batch rows for every record.
func (e *Expander) Expand(records []label.Record) *Result {
	res := &Result{}
	missingScenario := make(map[string]bool)
	missingProfile := make(map[string]bool)

	for i := range records {
		rec := records[i].Normalize()
		e.expandRecord(&rec, res, missingScenario, missingProfile)
	}
	return res
}

func (e *Expander) expandRecord(rec *label.Record, res *Result, missingScenario, missingProfile map[string]bool) {
	states := e.Geography.StatesFor(rec)
	hucs := e.Geography.HUCsFor(states)

	method := rec.ApplicationMethod
	profile := DriftProfileFor(rec)
	distances := e.Options.distancesFor(method)
	depths, hasTBand := e.Options.depthsFor(method)

	log := e.log().WithFields(logrus.Fields{
		"descriptor": rec.Descriptor,
		"method":     method,
		"profile":    profile,
	})
	log.WithFields(logrus.Fields{
		"states": states,
		"hucs":   hucs,
	}).Debug("expanding record")

	for _, huc := range hucs {
		base, file := ScenarioName(rec.Scenario, huc, e.Options.Assessment, e.Options.KocLetter)
		emergence, harvest, err := e.Scenarios.Dates(file)
		if err != nil {
			if !missingScenario[base] {
				missingScenario[base] = true
				res.MissingScenarios = append(res.MissingScenarios, base)
			}
			log.WithField("scenario", base).Warn("scenario file missing, skipping HUC")
			continue
		}

		seasonRec, err := rec.WithSeason(emergence, harvest)
		if err != nil {
			log.WithField("scenario", base).WithError(err).Warn("skipping HUC")
			continue
		}

		for _, bin := range e.Options.Bins {
			profileBin := fmt.Sprintf("%d-%s", bin, profile)

			for _, distance := range distances {
				factors, err := e.Drift.Lookup(profileBin, distance)
				if err != nil {
					if !missingProfile[profileBin] {
						missingProfile[profileBin] = true
						res.MissingProfiles = append(res.MissingProfiles, profileBin)
					}
					log.WithField("profile", profileBin).Warn("drift profile not in table, skipping")
					continue
				}

				for _, mech := range TransportMechanisms(method, profile, distance, e.Options.Foliar) {
					methodUsed, depthsUsed := method, depths
					if mech == TransportDrift {
						methodUsed = DriftOnlyAppMethod
						depthsUsed = []int{DriftOnlyDepth}
					}

					for _, depth := range depthsUsed {
						row := e.buildRow(&seasonRec, runParams{
							huc: huc, base: base, file: file,
							bin: bin, profile: profile, distance: distance,
							mech: mech, method: methodUsed, depth: depth,
							hasTBand: hasTBand, factors: factors,
						}, res)
						res.Rows = append(res.Rows, row)
					}
				}
			}
		}
	}
}

type runParams struct {
	huc, base, file         string
	bin                     int
	profile, distance, mech string
	method, depth           int
	hasTBand                bool
	factors                 DriftFactors
}

func (e *Expander) buildRow(rec *label.Record, p runParams, res *Result) BatchRow {
	name := e.runName(rec.Descriptor, p)
	if e.Progress != nil {
		e.Progress(name)
	}

	sched := &schedule.Scheduler{
		Mode:             e.Options.Mode,
		RandomStartDates: e.Options.RandomStartDates,
		Seed:             e.Options.Seed,
		WettestMonths:    e.Options.WettestMonths[p.huc],
		Log:              e.Log,
	}
	apps, led := sched.Assign(rec)

	total := led.Applied(schedule.KeyTotal)
	if !rec.MaxAnnAmt.IsUnlimited() && !rec.MaxAnnAmt.ReachedBy(total.Add(unreachedTolerance)) {
		res.UnreachedAnnualMax = append(res.UnreachedAnnualMax, name)
		e.log().WithFields(logrus.Fields{
			"run":     name,
			"applied": total,
			"max":     rec.MaxAnnAmt,
		}).Warn("annual maximum amount not reached")
	}

	row := BatchRow{
		Descriptor:   rec.Descriptor,
		RunName:      name,
		HUC2:         p.huc,
		Scenario:     p.file,
		Bin:          p.bin,
		AppMethod:    p.method,
		Depth:        p.depth,
		HasTBand:     p.hasTBand,
		Efficiency:   p.factors.Efficiency,
		Drift:        p.factors.Drift,
		Applications: apps,
	}
	if p.hasTBand {
		row.TBand = e.Options.TBandFraction
	}
	return row
}

// runName encodes every dimension of the combination so a row is
// traceable back to its inputs by name alone.
func (e *Expander) runName(descriptor string, p runParams) string {
	depth := "no"
	if p.depth != noDepth {
		depth = fmt.Sprintf("%d", p.depth)
	}
	tband := "no"
	if p.hasTBand {
		tband = e.Options.TBandFraction.String()
	}
	startDates := "norand-startdates"
	if e.Options.RandomStartDates {
		startDates = "rand-startdates"
	}
	datePrior := "pr-maxrate"
	if e.Options.Mode == schedule.ModeWettestMonth {
		datePrior = "pr-wetmonth"
	}
	return fmt.Sprintf("%s_huc%s_%s_bin%d_appmeth%d_%s_%s_%s_%s-depth_%s-tband_%s_%s",
		descriptor, p.huc, p.base, p.bin, p.method,
		p.profile, p.distance, p.mech, depth, tband, startDates, datePrior)
}

func (e *Expander) log() logrus.FieldLogger {
	if e.Log != nil {
		return e.Log
	}
	return logrus.StandardLogger()
}

func containsInt(list []int, n int) bool {
	for _, v := range list {
		if v == n {
			return true
		}
	}
	return false
}
