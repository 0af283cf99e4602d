package label_test

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquasim/appdate-engine/label"
)

func intp(n int) *int { return &n }

func decp(v float64) *decimal.Decimal {
	d := decimal.NewFromFloat(v)
	return &d
}

func TestRecord_NormalizeConvertsAllAmounts(t *testing.T) {
	// GIVEN a record authored in lbs/acre
	rec := label.Record{
		MaxAnnAmt:          label.CapOf(6),
		PreEmergenceMaxAmt: label.CapOf(2),
		Rates: [label.MaxRateTiers]label.RateTier{
			{MaxAppRate: decp(2), PostEmergenceMRI: intp(14)},
		},
	}

	// WHEN normalized to kg/ha
	got := rec.Normalize()

	// THEN every amount scales by the conversion factor
	factor := label.LbsAcreToKgHa
	assert.True(t, got.MaxAnnAmt.Value().Equal(decimal.NewFromInt(6).Mul(factor)))
	assert.True(t, got.PreEmergenceMaxAmt.Value().Equal(decimal.NewFromInt(2).Mul(factor)))
	assert.True(t, got.Rates[0].Rate().Equal(decimal.NewFromInt(2).Mul(factor)))

	// AND absent fields stay absent
	assert.True(t, got.PostEmergenceMaxAmt.IsUnlimited())
	assert.False(t, got.Rates[1].Exists())
}

func TestRecord_WithSeasonDerivesValidIntervals(t *testing.T) {
	// GIVEN tiers with different MRI configurations
	rec := label.Record{
		Rates: [label.MaxRateTiers]label.RateTier{
			{MaxAppRate: decp(2), PreEmergenceMRI: intp(14), PostEmergenceMRI: intp(14)},
			{MaxAppRate: decp(1), PostEmergenceMRI: intp(7)},
		},
	}

	// WHEN scenario dates are attached
	got, err := rec.WithSeason(label.NewDay(time.May, 1), label.NewDay(time.September, 15))
	require.NoError(t, err)

	// THEN valid intervals mirror which MRIs are set
	assert.True(t, got.Rates[0].ValidIn(label.PreEmergence))
	assert.True(t, got.Rates[0].ValidIn(label.PostEmergence))
	assert.Equal(t, 2, got.Rates[0].ValidIntervalCount())

	assert.False(t, got.Rates[1].ValidIn(label.PreEmergence))
	assert.True(t, got.Rates[1].ValidIn(label.PostEmergence))
	assert.Equal(t, 1, got.Rates[1].ValidIntervalCount())
	assert.Equal(t, label.PostEmergence, got.Rates[1].SoleValidInterval())

	assert.True(t, got.Derived())
}

func TestRecord_WithSeasonParsesInstructionWindows(t *testing.T) {
	rec := label.Record{
		Rates: [label.MaxRateTiers]label.RateTier{
			{MaxAppRate: decp(2), PostEmergenceMRI: intp(14), Instruction: "N_H-30>H+0"},
		},
	}

	got, err := rec.WithSeason(label.NewDay(time.May, 1), label.NewDay(time.September, 15))
	require.NoError(t, err)

	w := got.Rates[0].Window()
	require.NotNil(t, w)
	assert.False(t, w.Admits(label.NewDay(time.September, 1)))
	assert.True(t, w.Admits(label.NewDay(time.June, 1)))
}

// =============================================================================
// TABLE LOADING
// =============================================================================

var tableColumns = []string{
	"RunDescriptor", "LabeledUse", "States", "Scenario", "ApplicationMethod", "DriftProfile",
	"MaxAnnAmt_lbsacre", "MaxAnnNumApps", "PHI",
	"PreEmergence_MaxAmt_lbsacre", "PreEmergence_MaxNumApps",
	"PostEmergence_MaxAmt_lbsacre", "PostEmergence_MaxNumApps",
	"Rate1_MaxAppRate_lbsacre", "Rate1_MaxNumApps", "Rate1_PreEmergenceMRI", "Rate1_PostEmergenceMRI", "Rate1_Instructions",
	"Rate2_MaxAppRate_lbsacre", "Rate2_MaxNumApps", "Rate2_PreEmergenceMRI", "Rate2_PostEmergenceMRI", "Rate2_Instructions",
	"Rate3_MaxAppRate_lbsacre", "Rate3_MaxNumApps", "Rate3_PreEmergenceMRI", "Rate3_PostEmergenceMRI", "Rate3_Instructions",
	"Rate4_MaxAppRate_lbsacre", "Rate4_MaxNumApps", "Rate4_PreEmergenceMRI", "Rate4_PostEmergenceMRI", "Rate4_Instructions",
}

// tableCSV builds a one-row table from named cell values; unnamed cells
// stay blank so field counts always match the header.
func tableCSV(cells map[string]string) string {
	row := make([]string, len(tableColumns))
	for i, name := range tableColumns {
		row[i] = cells[name]
	}
	return strings.Join(tableColumns, ",") + "\n" + strings.Join(row, ",") + "\n"
}

func baseCells() map[string]string {
	return map[string]string{
		"RunDescriptor":     "corn-a",
		"LabeledUse":        "corn",
		"States":            "All",
		"Scenario":          "MOcornSTD",
		"ApplicationMethod": "2",
		"DriftProfile":      "G-AERIAL",
		"MaxAnnAmt_lbsacre": "6",
		"MaxAnnNumApps":     "3",
		"PHI":               "7",

		"Rate1_MaxAppRate_lbsacre": "2",
		"Rate1_PreEmergenceMRI":    "14",
	}
}

func TestParseTableCSV_ReadsCompleteRecord(t *testing.T) {
	cells := baseCells()
	cells["PreEmergence_MaxAmt_lbsacre"] = "2"
	cells["PreEmergence_MaxNumApps"] = "1"
	cells["Rate1_MaxNumApps"] = "2"
	cells["Rate1_PostEmergenceMRI"] = "14"
	cells["Rate1_Instructions"] = "Y_E-30>H-7"
	cells["Rate2_MaxAppRate_lbsacre"] = "1"
	cells["Rate2_PostEmergenceMRI"] = "7"

	records, err := label.ParseTableCSV(strings.NewReader(tableCSV(cells)))
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "corn-a", rec.Descriptor)
	assert.Equal(t, "corn", rec.LabeledUse)
	assert.Equal(t, 2, rec.ApplicationMethod)
	assert.Equal(t, "G-AERIAL", rec.DriftProfile)
	assert.Equal(t, 3, rec.MaxAnnNumApps.Value())
	assert.True(t, rec.MaxAnnAmt.Value().Equal(decimal.NewFromInt(6)))
	assert.Equal(t, 7, rec.PHI)

	assert.Equal(t, 1, rec.PreEmergenceMaxNumApps.Value())
	assert.True(t, rec.PostEmergenceMaxAmt.IsUnlimited())
	assert.True(t, rec.PostEmergenceMaxNumApps.IsUnlimited())

	require.True(t, rec.Rates[0].Exists())
	assert.True(t, rec.Rates[0].Rate().Equal(decimal.NewFromInt(2)))
	assert.Equal(t, 2, rec.Rates[0].MaxNumApps.Value())
	require.NotNil(t, rec.Rates[0].PreEmergenceMRI)
	assert.Equal(t, 14, *rec.Rates[0].PreEmergenceMRI)
	assert.Equal(t, "Y_E-30>H-7", rec.Rates[0].Instruction)

	require.True(t, rec.Rates[1].Exists())
	assert.True(t, rec.Rates[1].MaxNumApps.IsUnlimited())
	assert.Nil(t, rec.Rates[1].PreEmergenceMRI)
	require.NotNil(t, rec.Rates[1].PostEmergenceMRI)

	assert.False(t, rec.Rates[2].Exists())
	assert.False(t, rec.Rates[3].Exists())
}

func TestParseTableCSV_RejectsMissingAnnualCaps(t *testing.T) {
	cells := baseCells()
	delete(cells, "MaxAnnAmt_lbsacre")

	_, err := label.ParseTableCSV(strings.NewReader(tableCSV(cells)))
	require.Error(t, err)
	assert.ErrorIs(t, err, label.ErrBadTable)
	assert.Contains(t, err.Error(), "MaxAnnAmt")
}

func TestParseTableCSV_RejectsMRIWithoutRate(t *testing.T) {
	cells := baseCells()
	cells["Rate2_PreEmergenceMRI"] = "14"

	_, err := label.ParseTableCSV(strings.NewReader(tableCSV(cells)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no max application rate")
}

func TestParseTableCSV_RejectsMalformedInstruction(t *testing.T) {
	cells := baseCells()
	cells["Rate1_Instructions"] = "Q_E-30"

	_, err := label.ParseTableCSV(strings.NewReader(tableCSV(cells)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instruction")
}

func TestParseTableCSV_RejectsWrongFirstColumn(t *testing.T) {
	_, err := label.ParseTableCSV(strings.NewReader("Descriptor,States\nx,All\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, label.ErrBadTable)
}
