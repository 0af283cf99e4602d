package run

import (
	"sort"
	"strings"

	"github.com/aquasim/appdate-engine/label"
)

// =============================================================================
// GEOGRAPHY - States text parsing and HUC2 resolution
// =============================================================================

// Geography resolves a label's States text into the HUC2 regions to model.
// All tables are injectable; DefaultGeography supplies usable defaults.
type Geography struct {
	// AllStates is the full label convention state list.
	AllStates []string

	// WestStates partitions the country for the EastofRockies /
	// WestofRockies conventions; east is everything not west.
	WestStates []string

	// CropStates maps a labeled use to the states where the crop is
	// grown. Unknown crops are treated as grown everywhere.
	CropStates map[string][]string

	// StateHUCs maps a state to its HUC2 regions. States absent from the
	// map contribute nothing.
	StateHUCs map[string][]string
}

// StatesFor parses the record's States text and intersects it with the
// states where the crop is grown.
func (g *Geography) StatesFor(rec *label.Record) []string {
	text := strings.ReplaceAll(rec.States, " ", "")

	var labelStates []string
	switch {
	case text == "All":
		labelStates = g.AllStates
	case text == "EastofRockies":
		labelStates = g.eastStates()
	case text == "WestofRockies":
		labelStates = g.WestStates
	case strings.Contains(text, "All"):
		// "All-AK,HI" style subtraction.
		parts := strings.Split(text, "-")
		removed := strings.Split(parts[len(parts)-1], ",")
		labelStates = subtract(g.AllStates, removed)
	default:
		labelStates = strings.Split(text, ",")
	}

	grown, ok := g.CropStates[rec.LabeledUse]
	if !ok {
		grown = g.AllStates
	}
	return intersect(labelStates, grown)
}

// HUCsFor maps states to their HUC2 regions, sorted and deduplicated.
func (g *Geography) HUCsFor(states []string) []string {
	seen := make(map[string]bool)
	for _, state := range states {
		for _, huc := range g.StateHUCs[state] {
			seen[huc] = true
		}
	}
	hucs := make([]string, 0, len(seen))
	for huc := range seen {
		hucs = append(hucs, huc)
	}
	sort.Strings(hucs)
	return hucs
}

func (g *Geography) eastStates() []string {
	return subtract(g.AllStates, g.WestStates)
}

func subtract(from, remove []string) []string {
	out := make([]string, 0, len(from))
	for _, s := range from {
		if !contains(remove, s) {
			out = append(out, s)
		}
	}
	return out
}

func intersect(a, b []string) []string {
	out := make([]string, 0, len(a))
	for _, s := range a {
		if contains(b, s) {
			out = append(out, s)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// =============================================================================
// DEFAULT TABLES
// =============================================================================

var conusStates = []string{
	"AL", "AR", "AZ", "CA", "CO", "CT", "DE", "FL", "GA", "IA",
	"ID", "IL", "IN", "KS", "KY", "LA", "MA", "MD", "ME", "MI",
	"MN", "MO", "MS", "MT", "NC", "ND", "NE", "NH", "NJ", "NM",
	"NV", "NY", "OH", "OK", "OR", "PA", "RI", "SC", "SD", "TN",
	"TX", "UT", "VA", "VT", "WA", "WI", "WV", "WY",
}

var westOfRockies = []string{
	"AZ", "CA", "CO", "ID", "MT", "NM", "NV", "OR", "UT", "WA", "WY",
}

// stateHUC2s maps each state to the HUC2 regions overlapping it.
var stateHUC2s = map[string][]string{
	"AL": {"03", "06"},
	"AR": {"08", "11"},
	"AZ": {"14", "15"},
	"CA": {"15", "16", "18"},
	"CO": {"10", "11", "13", "14"},
	"CT": {"01"},
	"DE": {"02"},
	"FL": {"03"},
	"GA": {"03", "06"},
	"IA": {"07", "10"},
	"ID": {"16", "17"},
	"IL": {"04", "05", "07"},
	"IN": {"04", "05", "07"},
	"KS": {"10", "11"},
	"KY": {"05", "06", "08"},
	"LA": {"08", "11", "12"},
	"MA": {"01"},
	"MD": {"02", "05"},
	"ME": {"01"},
	"MI": {"04"},
	"MN": {"04", "07", "09"},
	"MO": {"07", "08", "10", "11"},
	"MS": {"03", "08"},
	"MT": {"09", "10", "17"},
	"NC": {"03", "06"},
	"ND": {"09", "10"},
	"NE": {"10"},
	"NH": {"01"},
	"NJ": {"02"},
	"NM": {"11", "12", "13", "14", "15"},
	"NV": {"15", "16", "18"},
	"NY": {"01", "02", "04", "05"},
	"OH": {"04", "05"},
	"OK": {"11"},
	"OR": {"16", "17", "18"},
	"PA": {"02", "04", "05"},
	"RI": {"01"},
	"SC": {"03"},
	"SD": {"07", "09", "10"},
	"TN": {"05", "06", "08"},
	"TX": {"11", "12", "13"},
	"UT": {"14", "15", "16"},
	"VA": {"02", "03", "05", "06"},
	"VT": {"01", "02"},
	"WA": {"17"},
	"WI": {"04", "07"},
	"WV": {"02", "05"},
	"WY": {"10", "14", "16", "17"},
}

// DefaultGeography returns the standard lookup tables. Legacy assessments
// extend coverage to Alaska, Hawaii and the Caribbean regions.
func DefaultGeography(legacy bool) *Geography {
	g := &Geography{
		AllStates:  append([]string(nil), conusStates...),
		WestStates: append([]string(nil), westOfRockies...),
		CropStates: map[string][]string{},
		StateHUCs:  make(map[string][]string, len(stateHUC2s)+3),
	}
	for state, hucs := range stateHUC2s {
		g.StateHUCs[state] = append([]string(nil), hucs...)
	}
	if legacy {
		g.AllStates = append(g.AllStates, "AK", "HI", "PR")
		g.StateHUCs["AK"] = []string{"19"}
		g.StateHUCs["HI"] = []string{"20"}
		g.StateHUCs["PR"] = []string{"21"}
	} else {
		g.AllStates = append(g.AllStates, "AK", "HI")
	}
	return g
}
