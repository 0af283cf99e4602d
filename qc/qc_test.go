package qc_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquasim/appdate-engine/label"
	"github.com/aquasim/appdate-engine/qc"
	"github.com/aquasim/appdate-engine/schedule"
)

func intp(n int) *int { return &n }

func decp(v float64) *decimal.Decimal {
	d := decimal.NewFromFloat(v)
	return &d
}

// postOnlyRecord mirrors the canonical scheduling record, already in kg/ha.
func postOnlyRecord(t *testing.T) label.Record {
	t.Helper()
	rec := label.Record{
		Descriptor:    "corn-a",
		Scenario:      "MOcornSTD",
		MaxAnnNumApps: label.LimitOf(3),
		MaxAnnAmt:     label.CapOf(6),
		PHI:           7,
		Rates: [label.MaxRateTiers]label.RateTier{
			{MaxAppRate: decp(2), PostEmergenceMRI: intp(14)},
		},
	}
	derived, err := rec.WithSeason(label.NewDay(time.May, 1), label.NewDay(time.September, 15))
	require.NoError(t, err)
	return derived
}

func days(ds ...label.Day) []label.Day { return ds }

func rates(vs ...float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vs))
	for i, v := range vs {
		out[i] = decimal.NewFromFloat(v)
	}
	return out
}

// =============================================================================
// SINGLE RUN VALIDATION
// =============================================================================

func TestValidateRun_CompliantRunPassesEverything(t *testing.T) {
	rec := postOnlyRecord(t)
	run := qc.RunInput{
		Descriptor:   "corn-a",
		Dates:        days(label.NewDay(time.May, 1), label.NewDay(time.May, 15), label.NewDay(time.May, 29)),
		Rates:        rates(2, 2, 2),
		DeclaredApps: 3,
	}

	res := qc.ValidateRun(run, &rec, rec.Emergence(), rec.Harvest())

	assert.True(t, res.Valid())
	assert.Equal(t, 3, res.AnnNumApps.Modeled)
	assert.True(t, res.AnnAmt.Modeled.Equal(decimal.NewFromInt(6)))
	assert.Equal(t, []int{14, 14}, res.ModeledGaps)
	assert.Equal(t, 14, res.LabelMRI)
}

func TestValidateRun_SortsDatesBeforeChecking(t *testing.T) {
	// GIVEN dates out of order (reverse assignment produces this)
	rec := postOnlyRecord(t)
	run := qc.RunInput{
		Descriptor:   "corn-a",
		Dates:        days(label.NewDay(time.May, 29), label.NewDay(time.May, 1), label.NewDay(time.May, 15)),
		Rates:        rates(2, 2, 2),
		DeclaredApps: 3,
	}

	res := qc.ValidateRun(run, &rec, rec.Emergence(), rec.Harvest())

	require.Len(t, res.SortedDates, 3)
	assert.True(t, res.SortedDates[0].Equal(label.NewDay(time.May, 1)))
	assert.True(t, res.SortedDates[2].Equal(label.NewDay(time.May, 29)))
	assert.True(t, res.MRIPass, "gaps computed on sorted dates")
}

func TestValidateRun_FlagsAnnualCountExcess(t *testing.T) {
	rec := postOnlyRecord(t)
	run := qc.RunInput{
		Descriptor: "corn-a",
		Dates: days(
			label.NewDay(time.May, 1), label.NewDay(time.May, 15),
			label.NewDay(time.May, 29), label.NewDay(time.June, 12),
		),
		Rates:        rates(1, 1, 1, 1),
		DeclaredApps: 4,
	}

	res := qc.ValidateRun(run, &rec, rec.Emergence(), rec.Harvest())

	assert.False(t, res.AnnNumApps.Pass)
	assert.False(t, res.Valid())
	assert.Equal(t, 4, res.AnnNumApps.Modeled)
}

func TestValidateRun_AmountThresholdAbsorbsRounding(t *testing.T) {
	rec := postOnlyRecord(t)

	// GIVEN a total 0.002 over the cap, the threshold lets it pass
	run := qc.RunInput{
		Descriptor:   "corn-a",
		Dates:        days(label.NewDay(time.May, 1), label.NewDay(time.May, 15), label.NewDay(time.May, 29)),
		Rates:        rates(2, 2, 2.002),
		DeclaredApps: 3,
	}
	res := qc.ValidateRun(run, &rec, rec.Emergence(), rec.Harvest())
	assert.True(t, res.AnnAmt.Pass)

	// AND just past the threshold it fails
	run.Rates = rates(2, 2, 2.003)
	res = qc.ValidateRun(run, &rec, rec.Emergence(), rec.Harvest())
	assert.False(t, res.AnnAmt.Pass)
	assert.False(t, res.Valid())
}

func TestValidateRun_MissingIntervalCapsDefault(t *testing.T) {
	// GIVEN no explicit interval caps and a post-only tier:
	// post defaults to the annual caps, pre defaults to zero
	rec := postOnlyRecord(t)

	// A pre-emergence application must then fail the pre caps
	run := qc.RunInput{
		Descriptor:   "corn-a",
		Dates:        days(label.NewDay(time.March, 1)),
		Rates:        rates(2),
		DeclaredApps: 1,
	}
	res := qc.ValidateRun(run, &rec, rec.Emergence(), rec.Harvest())

	assert.False(t, res.PreNumApps.Pass, "pre interval is invalid, cap defaults to zero")
	assert.False(t, res.PreAmt.Pass)
	assert.Equal(t, 0, res.PreNumApps.Label.Value())

	// AND post applications are judged against the annual caps
	run.Dates = days(label.NewDay(time.June, 1), label.NewDay(time.June, 15), label.NewDay(time.June, 29))
	run.Rates = rates(2, 2, 2)
	run.DeclaredApps = 3
	res = qc.ValidateRun(run, &rec, rec.Emergence(), rec.Harvest())
	assert.True(t, res.PostNumApps.Pass)
	assert.Equal(t, 3, res.PostNumApps.Label.Value())
	assert.True(t, res.PostAmt.Label.Equal(decimal.NewFromInt(6)))
}

func TestValidateRun_FlagsMRIViolationDuplicatesAndPHI(t *testing.T) {
	rec := postOnlyRecord(t)

	// MRI: 10 day gap under the 14 day label MRI
	run := qc.RunInput{
		Descriptor:   "corn-a",
		Dates:        days(label.NewDay(time.May, 1), label.NewDay(time.May, 11)),
		Rates:        rates(2, 2),
		DeclaredApps: 2,
	}
	res := qc.ValidateRun(run, &rec, rec.Emergence(), rec.Harvest())
	assert.False(t, res.MRIPass)
	assert.Equal(t, []int{10}, res.ModeledGaps)

	// Duplicates
	run.Dates = days(label.NewDay(time.May, 1), label.NewDay(time.May, 1))
	res = qc.ValidateRun(run, &rec, rec.Emergence(), rec.Harvest())
	assert.False(t, res.NoDuplicates)

	// PHI: Sep 10 is inside (Sep 8, Sep 15]
	run.Dates = days(label.NewDay(time.September, 10))
	run.Rates = rates(2)
	run.DeclaredApps = 1
	res = qc.ValidateRun(run, &rec, rec.Emergence(), rec.Harvest())
	assert.False(t, res.PHIPass)
}

func TestValidateRun_DeclaredCountMismatch(t *testing.T) {
	rec := postOnlyRecord(t)
	run := qc.RunInput{
		Descriptor:   "corn-a",
		Dates:        days(label.NewDay(time.May, 1)),
		Rates:        rates(2),
		DeclaredApps: 2,
	}

	res := qc.ValidateRun(run, &rec, rec.Emergence(), rec.Harvest())
	assert.False(t, res.DeclaredCountPass)
	assert.Equal(t, 2, res.DeclaredApps)
	assert.Equal(t, 1, res.ModeledApps)
}

// =============================================================================
// ROUND TRIP: SCHEDULER OUTPUT PASSES VALIDATION
// =============================================================================

func TestRoundTrip_ScheduledApplicationsValidate(t *testing.T) {
	cases := []struct {
		name string
		prep func(rec *label.Record)
		mode schedule.Mode
	}{
		{name: "count capped", prep: func(*label.Record) {}, mode: schedule.ModeMaxRate},
		{name: "amount clamped", prep: func(rec *label.Record) {
			rec.MaxAnnAmt = label.CapOf(5)
		}, mode: schedule.ModeMaxRate},
		{name: "deep season", prep: func(rec *label.Record) {
			rec.MaxAnnNumApps = label.LimitOf(20)
			rec.MaxAnnAmt = label.CapOf(40)
		}, mode: schedule.ModeMaxRate},
		{name: "wettest month", prep: func(*label.Record) {}, mode: schedule.ModeWettestMonth},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postOnlyRecord(t)
			tc.prep(&rec)

			s := &schedule.Scheduler{Mode: tc.mode}
			if tc.mode == schedule.ModeWettestMonth {
				s.WettestMonths = []time.Month{
					time.June, time.July, time.May, time.August, time.September,
					time.April, time.October, time.March, time.November,
					time.February, time.December, time.January,
				}
			}
			apps, _ := s.Assign(&rec)
			require.NotEmpty(t, apps)

			run := qc.RunInput{Descriptor: rec.Descriptor, DeclaredApps: len(apps)}
			for _, app := range apps {
				run.Dates = append(run.Dates, app.Date)
				run.Rates = append(run.Rates, app.Rate)
			}

			res := qc.ValidateRun(run, &rec, rec.Emergence(), rec.Harvest())
			assert.True(t, res.Valid(), "generated schedule must pass its own label checks: %+v", res)
		})
	}
}
