package run

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aquasim/appdate-engine/qc"
)

// =============================================================================
// BATCH FILE OUTPUT
// =============================================================================

// ParseFateParamsCSV reads an ingredient fate parameter table with
// Parameter and Value columns into batch cell values keyed by column name.
func ParseFateParamsCSV(r io.Reader) (map[string]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("fate parameters: reading header: %w", err)
	}
	if len(header) < 2 || strings.TrimSpace(header[0]) != "Parameter" || strings.TrimSpace(header[1]) != "Value" {
		return nil, fmt.Errorf("fate parameters: columns must be Parameter, Value")
	}

	params := make(map[string]string)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("fate parameters: %w", err)
		}
		params[strings.TrimSpace(row[0])] = strings.TrimSpace(row[1])
	}
	return params, nil
}

// appGroupColumns is one application's column group, suffixed with the
// application number in the header.
var appGroupColumns = []string{
	"Day", "Month", "AppRate (kg/ha)", "ApplicationMethod",
	"Depth(cm)", "T-BandSplit", "Eff.", "Drift",
}

// WriteBatchCSV writes expanded rows as a model batch file: the standard
// prefix followed by per-application column groups sized to the longest
// run. Fate parameters apply to every row; waterbody parameters are keyed
// by aquatic bin. Both maps are keyed by batch column name and may be nil.
func WriteBatchCSV(w io.Writer, rows []BatchRow, fate map[string]string, waterbody map[int]map[string]string) error {
	maxApps := 0
	for i := range rows {
		if n := len(rows[i].Applications); n > maxApps {
			maxApps = n
		}
	}

	prefix := qc.BatchColumns()
	header := append([]string(nil), prefix...)
	for n := 1; n <= maxApps; n++ {
		for _, col := range appGroupColumns {
			header = append(header, fmt.Sprintf("%s%d", col, n))
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}

	for i := range rows {
		if err := cw.Write(batchRecord(&rows[i], prefix, maxApps, fate, waterbody)); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func batchRecord(row *BatchRow, prefix []string, maxApps int, fate map[string]string, waterbody map[int]map[string]string) []string {
	cells := map[string]string{
		"Run Descriptor":       row.Descriptor,
		"Run Name":             row.RunName,
		"HUC2":                 row.HUC2,
		"Scenario":             row.Scenario,
		"AquaticBin":           strconv.Itoa(row.Bin),
		"Num_Daysheds":         "1",
		"IRF1":                 "1",
		"NumberofApplications": strconv.Itoa(len(row.Applications)),
		"Absolute Dates?":      "TRUE",
	}
	for irf := 2; irf <= 31; irf++ {
		cells[fmt.Sprintf("IRF%d", irf)] = "0"
	}
	for name, value := range fate {
		cells[name] = value
	}
	for name, value := range waterbody[row.Bin] {
		cells[name] = value
	}

	record := make([]string, len(prefix), len(prefix)+maxApps*len(appGroupColumns))
	for i, name := range prefix {
		record[i] = cells[name]
	}

	depth := ""
	if row.Depth != noDepth {
		depth = strconv.Itoa(row.Depth)
	}
	tband := ""
	if row.HasTBand {
		tband = row.TBand.String()
	}
	for _, app := range row.Applications {
		record = append(record,
			strconv.Itoa(app.Date.DayOfMonth()),
			strconv.Itoa(int(app.Date.Month())),
			app.Rate.String(),
			strconv.Itoa(row.AppMethod),
			depth,
			tband,
			row.Efficiency.String(),
			row.Drift.String(),
		)
	}
	// Shorter runs pad their remaining application groups.
	for n := len(row.Applications); n < maxApps; n++ {
		for range appGroupColumns {
			record = append(record, "")
		}
	}
	return record
}
