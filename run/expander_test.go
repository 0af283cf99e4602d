package run_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquasim/appdate-engine/label"
	"github.com/aquasim/appdate-engine/qc"
	"github.com/aquasim/appdate-engine/run"
	"github.com/aquasim/appdate-engine/schedule"
)

func intp(n int) *int { return &n }

func decp(v float64) *decimal.Decimal {
	d := decimal.NewFromFloat(v)
	return &d
}

// staticScenarios satisfies run.ScenarioDates from a fixed map.
type staticScenarios map[string][2]label.Day

func (s staticScenarios) Dates(scenario string) (label.Day, label.Day, error) {
	d, ok := s[scenario]
	if !ok {
		return label.Day{}, label.Day{}, fmt.Errorf("scenario %q not found", scenario)
	}
	return d[0], d[1], nil
}

// testGeography keeps the fan-out to a single state and HUC.
func testGeography() *run.Geography {
	return &run.Geography{
		AllStates:  []string{"MO"},
		CropStates: map[string][]string{"corn": {"MO"}},
		StateHUCs:  map[string][]string{"MO": {"07"}},
	}
}

// foliarRecord caps out at exactly two applications: 2 lbs/acre per app
// against a 4 lbs/acre annual amount.
func foliarRecord() label.Record {
	return label.Record{
		Descriptor:        "corn-a",
		LabeledUse:        "corn",
		Scenario:          "MOcornSTD",
		States:            "MO",
		ApplicationMethod: 2,
		DriftProfile:      "G-AERIAL",
		MaxAnnNumApps:     label.LimitOf(2),
		MaxAnnAmt:         label.CapOf(4),
		PHI:               7,
		Rates: [label.MaxRateTiers]label.RateTier{
			{MaxAppRate: decp(2), PostEmergenceMRI: intp(14)},
		},
	}
}

func cornScenarios() staticScenarios {
	return staticScenarios{
		"MOcornSTD07.scn": {label.NewDay(time.May, 1), label.NewDay(time.September, 15)},
	}
}

func foliarExpander(t *testing.T) *run.Expander {
	t.Helper()
	return &run.Expander{
		Geography: testGeography(),
		Drift:     driftTable(t),
		Scenarios: cornScenarios(),
		Options: run.Options{
			Bins:      []int{4},
			Distances: map[int][]string{2: {"000m", "030m"}},
			Foliar: run.FoliarSelections{
				Distances: map[string]bool{"000m": true, "030m": true},
				DriftOnly: map[string]bool{"030m": true},
			},
			Assessment: run.AssessmentESA,
			Mode:       schedule.ModeMaxRate,
		},
	}
}

// =============================================================================
// FAN OUT
// =============================================================================

func TestExpand_FoliarFansOutAcrossDistancesAndTransport(t *testing.T) {
	// GIVEN two distances, with 030m selected for both drift-only and
	// combined transport
	e := foliarExpander(t)

	res := e.Expand([]label.Record{foliarRecord()})

	// THEN 000m runs combined transport and 030m runs both variants
	require.Len(t, res.Rows, 3)
	assert.Equal(t,
		"corn-a_huc07_MOcornSTD07_bin4_appmeth2_G-AERIAL_000m_RD_no-depth_no-tband_norand-startdates_pr-maxrate",
		res.Rows[0].RunName)
	assert.Equal(t,
		"corn-a_huc07_MOcornSTD07_bin4_appmeth4_G-AERIAL_030m_D_8-depth_no-tband_norand-startdates_pr-maxrate",
		res.Rows[1].RunName)
	assert.Equal(t,
		"corn-a_huc07_MOcornSTD07_bin4_appmeth2_G-AERIAL_030m_RD_no-depth_no-tband_norand-startdates_pr-maxrate",
		res.Rows[2].RunName)

	assert.Empty(t, res.MissingScenarios)
	assert.Empty(t, res.MissingProfiles)
	assert.Empty(t, res.UnreachedAnnualMax)
}

func TestExpand_DriftOnlySubstitutesMethodAndDepth(t *testing.T) {
	e := foliarExpander(t)

	res := e.Expand([]label.Record{foliarRecord()})
	require.Len(t, res.Rows, 3)

	driftOnly := res.Rows[1]
	assert.Equal(t, run.DriftOnlyAppMethod, driftOnly.AppMethod)
	assert.Equal(t, run.DriftOnlyDepth, driftOnly.Depth)
	assert.True(t, driftOnly.Drift.Equal(decimal.NewFromFloat(0.11)))
	assert.True(t, driftOnly.Efficiency.Equal(decimal.NewFromFloat(0.95)))

	combined := res.Rows[0]
	assert.Equal(t, 2, combined.AppMethod)
	assert.Zero(t, combined.Depth)
	assert.True(t, combined.Drift.Equal(decimal.NewFromFloat(0.28)))
}

func TestExpand_SchedulesNormalizedApplications(t *testing.T) {
	// GIVEN rates stated in lbs/acre on the label
	e := foliarExpander(t)

	res := e.Expand([]label.Record{foliarRecord()})
	require.Len(t, res.Rows, 3)

	// THEN each run gets two kg/ha applications an MRI apart
	kgRate := decimal.NewFromFloat(2).Mul(label.LbsAcreToKgHa)
	for _, row := range res.Rows {
		require.Len(t, row.Applications, 2, row.RunName)
		assert.True(t, row.Applications[0].Date.Equal(label.NewDay(time.May, 1)))
		assert.True(t, row.Applications[1].Date.Equal(label.NewDay(time.May, 15)))
		for _, app := range row.Applications {
			assert.True(t, app.Rate.Equal(kgRate))
		}
	}
}

func TestExpand_BuriedMethodForcesNoDriftAndKeepsTBand(t *testing.T) {
	// GIVEN a t-band record; 2cm is not a valid t-band depth
	rec := foliarRecord()
	rec.ApplicationMethod = 5
	rec.DriftProfile = "G-GRANULAR"

	e := foliarExpander(t)
	e.Options.Depths = map[int][]int{5: {2, 4, 8}}
	e.Options.TBandFraction = decimal.NewFromFloat(0.5)

	res := e.Expand([]label.Record{rec})

	// THEN runs stay at 000m, runoff only, one per surviving depth
	require.Len(t, res.Rows, 2)
	assert.Equal(t,
		"corn-a_huc07_MOcornSTD07_bin4_appmeth5_G-NODRIFT_000m_R_4-depth_0.5-tband_norand-startdates_pr-maxrate",
		res.Rows[0].RunName)
	assert.Equal(t, 8, res.Rows[1].Depth)
	for _, row := range res.Rows {
		assert.True(t, row.HasTBand)
		assert.True(t, row.TBand.Equal(decimal.NewFromFloat(0.5)))
	}
}

func TestExpand_RunNameReflectsSchedulingOptions(t *testing.T) {
	seed := int64(42)
	e := foliarExpander(t)
	e.Options.Distances = map[int][]string{2: {"000m"}}
	e.Options.Mode = schedule.ModeWettestMonth
	e.Options.RandomStartDates = true
	e.Options.Seed = &seed
	e.Options.WettestMonths = map[string][]time.Month{
		"07": {time.June, time.May, time.July, time.August, time.April,
			time.September, time.March, time.October, time.February,
			time.November, time.January, time.December},
	}

	res := e.Expand([]label.Record{foliarRecord()})

	require.Len(t, res.Rows, 1)
	assert.True(t, strings.HasSuffix(res.Rows[0].RunName, "_rand-startdates_pr-wetmonth"))
}

// =============================================================================
// SKIPS AND WARNINGS
// =============================================================================

func TestExpand_MissingScenarioSkipsHUC(t *testing.T) {
	e := foliarExpander(t)
	e.Scenarios = staticScenarios{}

	res := e.Expand([]label.Record{foliarRecord()})

	assert.Empty(t, res.Rows)
	assert.Equal(t, []string{"MOcornSTD07"}, res.MissingScenarios)
}

func TestExpand_MissingDriftProfileSkipsAndDeduplicates(t *testing.T) {
	rec := foliarRecord()
	rec.DriftProfile = "G-AIRBLAST"
	e := foliarExpander(t)

	res := e.Expand([]label.Record{rec})

	assert.Empty(t, res.Rows)
	assert.Equal(t, []string{"4-G-AIRBLAST"}, res.MissingProfiles)
}

func TestExpand_FlagsRunsThatCannotReachAnnualMax(t *testing.T) {
	// GIVEN one allowed application against a 10 lbs/acre annual amount
	rec := foliarRecord()
	rec.MaxAnnNumApps = label.LimitOf(1)
	rec.MaxAnnAmt = label.CapOf(10)
	e := foliarExpander(t)
	e.Options.Distances = map[int][]string{2: {"000m"}}

	res := e.Expand([]label.Record{rec})

	require.Len(t, res.Rows, 1)
	assert.Equal(t, []string{res.Rows[0].RunName}, res.UnreachedAnnualMax)
}

func TestExpand_ReportsProgressPerRun(t *testing.T) {
	var seen []string
	e := foliarExpander(t)
	e.Progress = func(name string) { seen = append(seen, name) }

	res := e.Expand([]label.Record{foliarRecord()})

	require.Len(t, res.Rows, 3)
	assert.Len(t, seen, 3)
	assert.Equal(t, res.Rows[0].RunName, seen[0])
}

// =============================================================================
// BATCH FILE OUTPUT
// =============================================================================

func TestParseFateParamsCSV(t *testing.T) {
	params, err := run.ParseFateParamsCSV(strings.NewReader(
		"Parameter,Value\nMolecularWeight(g/mol),300\nSolubility(mg/L),12.5\n"))
	require.NoError(t, err)

	assert.Equal(t, "300", params["MolecularWeight(g/mol)"])
	assert.Equal(t, "12.5", params["Solubility(mg/L)"])

	_, err = run.ParseFateParamsCSV(strings.NewReader("Name,Value\nx,1\n"))
	assert.Error(t, err)
}

func TestWriteBatchCSV_RoundTripsThroughTheValidatorParser(t *testing.T) {
	e := foliarExpander(t)
	res := e.Expand([]label.Record{foliarRecord()})
	require.Len(t, res.Rows, 3)

	var sb strings.Builder
	fate := map[string]string{"MolecularWeight(g/mol)": "300"}
	waterbody := map[int]map[string]string{4: {"FlowAvgTime": "30"}}
	require.NoError(t, run.WriteBatchCSV(&sb, res.Rows, fate, waterbody))

	runs, err := qc.ParseBatchCSV(strings.NewReader(sb.String()))
	require.NoError(t, err)
	require.Len(t, runs, 3)

	for i, r := range runs {
		assert.Equal(t, "corn-a", r.Descriptor)
		assert.Equal(t, res.Rows[i].RunName, r.RunName)
		assert.Equal(t, "07", r.HUC2)
		assert.Equal(t, "4", r.Bin)
		assert.Equal(t, "MOcornSTD07.scn", r.Scenario)
		assert.Equal(t, 2, r.DeclaredApps)
		require.Len(t, r.Dates, 2)
		assert.True(t, r.Dates[0].Equal(label.NewDay(time.May, 1)))
		assert.True(t, r.Dates[1].Equal(label.NewDay(time.May, 15)))
	}

	header := strings.SplitN(sb.String(), "\n", 2)[0]
	assert.True(t, strings.HasPrefix(header, "Run Descriptor,Run Name,"))
	assert.Contains(t, header, "Day1,Month1,AppRate (kg/ha)1")
	assert.Contains(t, sb.String(), "TRUE", "absolute dates flag")
}
