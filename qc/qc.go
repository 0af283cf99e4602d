/*
Package qc independently re-validates finished application schedules
against their label records.

PURPOSE:
  The scheduler enforces restrictions while building; qc re-derives every
  restriction from scratch for a finished batch, so a bug on either side
  surfaces as a failed check. Checks never abort a batch: each run yields
  one Result row, and failures are data in that row.

KEY CONCEPTS:
  - RunInput:  one run's dates/rates as they appear in a batch file
  - Result:    per-run check verdicts plus the modeled and label values
  - effectiveCaps: interval caps defaulted from the annual cap when the
    label leaves them open but marks the interval valid

SEE ALSO:
  - schedule: the generator whose output this package re-checks
  - report.go: CSV input parsing and result output
*/
package qc

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/aquasim/appdate-engine/label"
)

// amtThreshold absorbs rounding when comparing summed amounts to caps.
var amtThreshold = decimal.NewFromFloat(0.002)

// RunInput is one run row from a batch file. Rates stay in the file's
// column order; dates are sorted during validation.
type RunInput struct {
	Descriptor   string
	RunName      string
	HUC2         string
	Bin          string
	Scenario     string
	Dates        []label.Day
	Rates        []decimal.Decimal
	DeclaredApps int
}

// Check is one verdict plus the values behind it.
type Check struct {
	Pass    bool
	Modeled decimal.Decimal
	Label   decimal.Decimal
}

// CountCheck is a verdict over application counts.
type CountCheck struct {
	Pass    bool
	Modeled int
	Label   label.Limit
}

// Result is one run's full validation outcome.
type Result struct {
	Descriptor string
	RunName    string
	HUC2       string
	Bin        string
	Scenario   string
	Emergence  label.Day
	Harvest    label.Day

	SortedDates []label.Day
	Rates       []decimal.Decimal

	AnnNumApps  CountCheck
	AnnAmt      Check
	PreNumApps  CountCheck
	PreAmt      Check
	PostNumApps CountCheck
	PostAmt     Check

	MRIPass     bool
	ModeledGaps []int
	LabelMRI    int

	NoDuplicates bool

	PHIPass  bool
	LabelPHI int

	DeclaredCountPass bool
	DeclaredApps      int
	ModeledApps       int
}

// Valid reports whether every check passed.
func (r *Result) Valid() bool {
	return r.AnnNumApps.Pass && r.AnnAmt.Pass &&
		r.PreNumApps.Pass && r.PreAmt.Pass &&
		r.PostNumApps.Pass && r.PostAmt.Pass &&
		r.MRIPass && r.NoDuplicates && r.PHIPass && r.DeclaredCountPass
}

// effectiveCaps resolves the interval caps used for validation. A missing
// interval cap defaults to the annual cap when any tier MRI marks the
// interval valid, and to zero when none does.
type effectiveCaps struct {
	num label.Limit
	amt label.Cap
}

func capsFor(rec *label.Record, iv label.Interval) effectiveCaps {
	c := effectiveCaps{
		num: rec.IntervalMaxNumApps(iv),
		amt: rec.IntervalMaxAmt(iv),
	}
	valid := rec.HasAnyMRI(iv)
	if c.amt.IsUnlimited() {
		if valid {
			c.amt = rec.MaxAnnAmt
		} else {
			c.amt = label.CapAmount(decimal.Zero)
		}
	}
	if c.num.IsUnlimited() {
		if valid {
			c.num = rec.MaxAnnNumApps
		} else {
			c.num = label.LimitOf(0)
		}
	}
	return c
}

// withinAmt compares a summed amount to a cap with the rounding threshold.
func withinAmt(c label.Cap, amt decimal.Decimal) bool {
	return c.IsUnlimited() || amt.LessThanOrEqual(c.Value().Add(amtThreshold))
}

func withinCount(l label.Limit, n int) bool {
	return l.IsUnlimited() || n <= l.Value()
}

// ValidateRun checks one run against its normalized label record and
// scenario dates.
func ValidateRun(run RunInput, rec *label.Record, emergence, harvest label.Day) Result {
	res := Result{
		Descriptor: run.Descriptor,
		RunName:    run.RunName,
		HUC2:       run.HUC2,
		Bin:        run.Bin,
		Scenario:   run.Scenario,
		Emergence:  emergence,
		Harvest:    harvest,
		Rates:      run.Rates,
		LabelPHI:   rec.PHI,
	}

	dates := append([]label.Day(nil), run.Dates...)
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	res.SortedDates = dates
	res.ModeledApps = len(dates)

	// Interval splits pair sorted dates with rates in file order, the
	// same pairing the batch file convention uses.
	var preNum, postNum int
	preAmt, postAmt := decimal.Zero, decimal.Zero
	total := decimal.Zero
	for i, d := range dates {
		rate := decimal.Zero
		if i < len(run.Rates) {
			rate = run.Rates[i]
		}
		total = total.Add(rate)
		if label.Classify(d, emergence, harvest) == label.PreEmergence {
			preNum++
			preAmt = preAmt.Add(rate)
		} else {
			postNum++
			postAmt = postAmt.Add(rate)
		}
	}

	res.AnnNumApps = CountCheck{
		Pass:    withinCount(rec.MaxAnnNumApps, len(dates)),
		Modeled: len(dates),
		Label:   rec.MaxAnnNumApps,
	}
	res.AnnAmt = Check{
		Pass:    withinAmt(rec.MaxAnnAmt, total),
		Modeled: total,
		Label:   rec.MaxAnnAmt.Value(),
	}

	pre := capsFor(rec, label.PreEmergence)
	res.PreNumApps = CountCheck{Pass: withinCount(pre.num, preNum), Modeled: preNum, Label: pre.num}
	res.PreAmt = Check{Pass: withinAmt(pre.amt, preAmt), Modeled: preAmt, Label: pre.amt.Value()}

	post := capsFor(rec, label.PostEmergence)
	res.PostNumApps = CountCheck{Pass: withinCount(post.num, postNum), Modeled: postNum, Label: post.num}
	res.PostAmt = Check{Pass: withinAmt(post.amt, postAmt), Modeled: postAmt, Label: post.amt.Value()}

	res.LabelMRI, res.ModeledGaps, res.MRIPass = checkMRI(dates, rec)
	res.NoDuplicates = checkNoDuplicates(dates)
	res.PHIPass = checkPHI(dates, harvest, rec.PHI)

	res.DeclaredApps = run.DeclaredApps
	res.DeclaredCountPass = run.DeclaredApps == len(dates)

	return res
}

// checkMRI validates consecutive gaps between sorted dates against the
// tier 1 MRI, preferring the pre-emergence MRI when both are set.
func checkMRI(dates []label.Day, rec *label.Record) (int, []int, bool) {
	mri := 0
	if rec.Rates[0].PreEmergenceMRI != nil {
		mri = *rec.Rates[0].PreEmergenceMRI
	} else if rec.Rates[0].PostEmergenceMRI != nil {
		mri = *rec.Rates[0].PostEmergenceMRI
	}

	gaps := make([]int, 0, len(dates))
	pass := true
	for i := 0; i+1 < len(dates); i++ {
		gap := label.DaysBetween(dates[i], dates[i+1])
		gaps = append(gaps, gap)
		if gap < mri {
			pass = false
		}
	}
	return mri, gaps, pass
}

func checkNoDuplicates(dates []label.Day) bool {
	for i := 0; i+1 < len(dates); i++ {
		if dates[i].Equal(dates[i+1]) {
			return false
		}
	}
	return true
}

// checkPHI fails when any date falls in (harvest-PHI, harvest].
func checkPHI(dates []label.Day, harvest label.Day, phi int) bool {
	start := harvest.AddDays(-phi)
	for _, d := range dates {
		if d.After(start) && d.BeforeOrEqual(harvest) {
			return false
		}
	}
	return true
}
