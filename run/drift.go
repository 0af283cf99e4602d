package run

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aquasim/appdate-engine/label"
)

// =============================================================================
// DRIFT REDUCTION TABLE
// =============================================================================
// The drift reduction table is a CSV keyed on "bin-profile" rows (for
// example "4-G-AERIAL") with one column per distance plus an Efficiency
// column.

// ErrBadDriftTable wraps drift table parse failures.
var ErrBadDriftTable = errors.New("invalid drift reduction table")

// ErrProfileNotFound reports a missing profile/bin row or distance column.
var ErrProfileNotFound = errors.New("drift profile not found")

// DriftFactors is one row's drift value at a distance plus the spray
// efficiency.
type DriftFactors struct {
	Drift      decimal.Decimal
	Efficiency decimal.Decimal
}

// DriftTable holds drift factors by profile row and distance column.
type DriftTable struct {
	distances  map[string]int
	rows       map[string][]decimal.Decimal
	efficiency map[string]decimal.Decimal
}

// ParseDriftTableCSV reads a drift reduction table. The first column must
// be Profile.
func ParseDriftTableCSV(r io.Reader) (*DriftTable, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrBadDriftTable, err)
	}
	if len(header) == 0 || strings.TrimSpace(header[0]) != "Profile" {
		return nil, fmt.Errorf("%w: first column must be Profile", ErrBadDriftTable)
	}

	t := &DriftTable{
		distances:  make(map[string]int),
		rows:       make(map[string][]decimal.Decimal),
		efficiency: make(map[string]decimal.Decimal),
	}
	effCol := -1
	for i := 1; i < len(header); i++ {
		name := strings.TrimSpace(header[i])
		if name == "Efficiency" {
			effCol = i
			continue
		}
		t.distances[name] = i
	}
	if effCol < 0 {
		return nil, fmt.Errorf("%w: missing Efficiency column", ErrBadDriftTable)
	}

	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadDriftTable, line, err)
		}
		values := make([]decimal.Decimal, len(row))
		for i := 1; i < len(row); i++ {
			v, err := decimal.NewFromString(strings.TrimSpace(row[i]))
			if err != nil {
				return nil, fmt.Errorf("%w: line %d column %d: %v", ErrBadDriftTable, line, i+1, err)
			}
			values[i] = v
		}
		profile := strings.TrimSpace(row[0])
		t.rows[profile] = values
		t.efficiency[profile] = values[effCol]
	}
	return t, nil
}

// Lookup returns the factors for a "bin-profile" row at a distance.
func (t *DriftTable) Lookup(profileBin, distance string) (DriftFactors, error) {
	row, ok := t.rows[profileBin]
	if !ok {
		return DriftFactors{}, fmt.Errorf("%w: row %q", ErrProfileNotFound, profileBin)
	}
	col, ok := t.distances[distance]
	if !ok || col >= len(row) {
		return DriftFactors{}, fmt.Errorf("%w: distance %q for row %q", ErrProfileNotFound, distance, profileBin)
	}
	return DriftFactors{Drift: row[col], Efficiency: t.efficiency[profileBin]}, nil
}

// DriftProfileFor resolves a record's drift profile. Buried application
// methods cannot drift and always use the no-drift profile.
func DriftProfileFor(rec *label.Record) string {
	if isBuried(rec.ApplicationMethod) {
		return NoDriftProfile
	}
	return rec.DriftProfile
}

// FoliarSelections is the per-distance run selection for the foliar
// application method: which distances run runoff+drift and which run
// drift only.
type FoliarSelections struct {
	Distances map[string]bool
	DriftOnly map[string]bool
}

// TransportMechanisms lists the transport variants to run for one
// method/profile/distance. No-drift profiles are runoff only; foliar
// applications honor the per-distance selections; everything else runs
// combined runoff and drift.
func TransportMechanisms(method int, profile, distance string, foliar FoliarSelections) []string {
	if profile == NoDriftProfile {
		return []string{TransportRunoff}
	}
	if method == FoliarAppMethod {
		var out []string
		if foliar.DriftOnly[distance] {
			out = append(out, TransportDrift)
		}
		if foliar.Distances[distance] {
			out = append(out, TransportRunoffDrift)
		}
		return out
	}
	return []string{TransportRunoffDrift}
}
