package qc

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aquasim/appdate-engine/label"
)

// =============================================================================
// BATCH FILE INPUT
// =============================================================================
// Batch files carry a fixed 77-column prefix (chemical fate parameters,
// geography, waterbody parameters) followed by repeating per-application
// column groups. Externally authored files may rename the prefix columns,
// so parsing standardizes the prefix by position before reading by name.

// ErrBadBatch wraps batch file parse failures.
var ErrBadBatch = errors.New("invalid batch file")

// standardColumns is the canonical batch prefix, in order.
var standardColumns = []string{
	"Run Descriptor",
	"Run Name",
	"SorptionCoefficient(mL/g)",
	"kocflag",
	"WaterColumnMetabolismHalflife(day)",
	"WaterReferenceTemperature(C)",
	"BenthicMetabolismHalflife(day)",
	"BenthicReferenceTemperature(C)",
	"AqueousPhotolysisHalflife(day)",
	"PhotolysisReferenceLatitude",
	"HydrolysisHalflife(days)",
	"SoilHalflife(days)",
	"SoilReferenceTemperature(C)",
	"FoliarHalflife(day)",
	"MolecularWeight(g/mol)",
	"VaporPressure(torr)",
	"Solubility(mg/L)",
	"Henry's Constant (unitless)",
	"Air Diffusion (cm3/d)",
	"Heat of Henry (J/mol)",
	"HUC2",
	"Scenario",
	"weather overide",
	"blank 1",
	"blank 2",
	"blank 3",
	"blank 4",
	"blank 5",
	"blank 6",
	"blank 7",
	"blank 8",
	"blank 9",
	"blank 10",
	"AquaticBin",
	"FlowAvgTime",
	"Field Size (m2)",
	"Waterbody Area (m2)",
	"Init Depth (m)",
	"Max Depth (m)",
	"HL (m)",
	"PUA",
	"Baseflow",
	"Num_Daysheds",
	"IRF1", "IRF2", "IRF3", "IRF4", "IRF5", "IRF6", "IRF7", "IRF8",
	"IRF9", "IRF10", "IRF11", "IRF12", "IRF13", "IRF14", "IRF15", "IRF16",
	"IRF17", "IRF18", "IRF19", "IRF20", "IRF21", "IRF22", "IRF23", "IRF24",
	"IRF25", "IRF26", "IRF27", "IRF28", "IRF29", "IRF30", "IRF31",
	"NumberofApplications",
	"Absolute Dates?",
	"Relative Dates?",
}

// BatchColumns returns a copy of the canonical batch prefix, for writers
// producing files this package can parse.
func BatchColumns() []string {
	return append([]string(nil), standardColumns...)
}

// ParseBatchCSV reads a batch file into per-run inputs. The prefix columns
// are standardized by position; application columns are located by the
// Day/Month/AppRate naming convention.
func ParseBatchCSV(r io.Reader) ([]RunInput, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrBadBatch, err)
	}
	if len(header) < len(standardColumns) {
		return nil, fmt.Errorf("%w: %d columns, want at least %d", ErrBadBatch, len(header), len(standardColumns))
	}
	for i := range standardColumns {
		header[i] = standardColumns[i]
	}

	col := make(map[string]int, len(header))
	var dayCols, monthCols, rateCols []int
	for i, name := range header {
		name = strings.TrimSpace(name)
		col[name] = i
		if i < len(standardColumns) {
			continue
		}
		switch {
		case strings.HasPrefix(name, "Day"):
			dayCols = append(dayCols, i)
		case strings.Contains(name, "Month"):
			monthCols = append(monthCols, i)
		case strings.Contains(name, "AppRate"):
			rateCols = append(rateCols, i)
		}
	}

	var runs []RunInput
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadBatch, line, err)
		}

		run, err := parseBatchRow(row, col, dayCols, monthCols, rateCols)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadBatch, line, err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func parseBatchRow(row []string, col map[string]int, dayCols, monthCols, rateCols []int) (RunInput, error) {
	field := func(name string) string {
		i := col[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	run := RunInput{
		Descriptor: field("Run Descriptor"),
		RunName:    field("Run Name"),
		HUC2:       field("HUC2"),
		Bin:        field("AquaticBin"),
		Scenario:   field("Scenario"),
	}
	if n := field("NumberofApplications"); n != "" {
		v, err := strconv.Atoi(n)
		if err != nil {
			return RunInput{}, fmt.Errorf("NumberofApplications %q: %v", n, err)
		}
		run.DeclaredApps = v
	}

	at := func(i int) string {
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	for k := range dayCols {
		dayStr := at(dayCols[k])
		if dayStr == "" {
			break
		}
		if k >= len(monthCols) {
			return RunInput{}, fmt.Errorf("application %d has a day but no month column", k+1)
		}
		day, err := strconv.Atoi(dayStr)
		if err != nil {
			return RunInput{}, fmt.Errorf("application %d day %q: %v", k+1, dayStr, err)
		}
		month, err := strconv.Atoi(at(monthCols[k]))
		if err != nil {
			return RunInput{}, fmt.Errorf("application %d month: %v", k+1, err)
		}
		run.Dates = append(run.Dates, label.NewDay(time.Month(month), day))

		rate := decimal.Zero
		if k < len(rateCols) && at(rateCols[k]) != "" {
			rate, err = decimal.NewFromString(at(rateCols[k]))
			if err != nil {
				return RunInput{}, fmt.Errorf("application %d rate: %v", k+1, err)
			}
		}
		run.Rates = append(run.Rates, rate)
	}
	return run, nil
}

// =============================================================================
// RESULTS OUTPUT
// =============================================================================

var resultColumns = []string{
	"RunisValid",
	"RunDescriptor",
	"RunName",
	"HUC",
	"Bin",
	"Scenario",
	"EmergenceDate",
	"HarvestDate",
	"AppRates(kg/ha)",
	"AppDates (sorted)",
	"Check_Ann_NumApps_NotExceeded",
	"Modeled_Ann_NumApps",
	"Label_Ann_NumApps",
	"Check_Ann_Amt_NotExceeded",
	"Modeled_Ann_Amt",
	"Label_Ann_Amt",
	"Difference_Ann_Amt",
	"Check_PreE_NumApps_NotExceeded",
	"Modeled_PreE_NumApps",
	"Label_PreE_NumApps",
	"Check_PreE_Amt_NotExceeded",
	"Modeled_PreE_Amt",
	"Label_PreE_Amt",
	"Difference_PreE_Amt",
	"Check_PostE_NumApps_NotExceeded",
	"Modeled_PostE_NumApps",
	"Label_PostE_NumApps",
	"Check_PostE_Amt_NotExceeded",
	"Modeled_PostE_Amt",
	"Label_PostE_Amt",
	"Difference_PostE_Amt",
	"Check_MRI_NotWithin",
	"Modeled_MRIs",
	"Label_MRI",
	"Check_NoDuplicate_AppDates",
	"Check_PreHarvInt_NotWithin",
	"Label_PreHarvInt",
	"Check_NumAppsField_IsCorrect",
	"NumAppsField",
	"Modeled_NumApps",
}

// WriteResultsCSV writes one row per validated run, overall verdict first.
func WriteResultsCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(resultColumns); err != nil {
		return err
	}

	for i := range results {
		res := &results[i]

		rates := make([]string, len(res.Rates))
		for j, rate := range res.Rates {
			rates[j] = rate.String()
		}
		dates := make([]string, len(res.SortedDates))
		for j, d := range res.SortedDates {
			dates[j] = d.MonthDay()
		}
		gaps := make([]string, len(res.ModeledGaps))
		for j, g := range res.ModeledGaps {
			gaps[j] = strconv.Itoa(g)
		}

		row := []string{
			formatBool(res.Valid()),
			res.Descriptor,
			res.RunName,
			res.HUC2,
			res.Bin,
			res.Scenario,
			res.Emergence.MonthDay(),
			res.Harvest.MonthDay(),
			strings.Join(rates, ";"),
			strings.Join(dates, ";"),
			formatBool(res.AnnNumApps.Pass),
			strconv.Itoa(res.AnnNumApps.Modeled),
			res.AnnNumApps.Label.String(),
			formatBool(res.AnnAmt.Pass),
			res.AnnAmt.Modeled.String(),
			res.AnnAmt.Label.String(),
			res.AnnAmt.Modeled.Sub(res.AnnAmt.Label).String(),
			formatBool(res.PreNumApps.Pass),
			strconv.Itoa(res.PreNumApps.Modeled),
			res.PreNumApps.Label.String(),
			formatBool(res.PreAmt.Pass),
			res.PreAmt.Modeled.String(),
			res.PreAmt.Label.String(),
			res.PreAmt.Modeled.Sub(res.PreAmt.Label).String(),
			formatBool(res.PostNumApps.Pass),
			strconv.Itoa(res.PostNumApps.Modeled),
			res.PostNumApps.Label.String(),
			formatBool(res.PostAmt.Pass),
			res.PostAmt.Modeled.String(),
			res.PostAmt.Label.String(),
			res.PostAmt.Modeled.Sub(res.PostAmt.Label).String(),
			formatBool(res.MRIPass),
			strings.Join(gaps, ";"),
			strconv.Itoa(res.LabelMRI),
			formatBool(res.NoDuplicates),
			formatBool(res.PHIPass),
			strconv.Itoa(res.LabelPHI),
			formatBool(res.DeclaredCountPass),
			strconv.Itoa(res.DeclaredApps),
			strconv.Itoa(res.ModeledApps),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}
