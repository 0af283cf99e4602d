/*
Package run expands label records into the full set of model runs and
produces batch rows for each.

PURPOSE:
  One label record fans out across geography (states to HUC2 regions),
  aquatic bins, spray-drift distances, transport mechanisms and
  application depths. Each combination gets one scheduled set of
  application dates and one row in the output batch.

KEY CONCEPTS:
  - Geography:   states text parsing and state-to-HUC resolution
  - DriftTable:  per profile/bin/distance drift and efficiency factors
  - ScenarioDates: emergence/harvest lookup from scenario files
  - Expander:    the fan-out driver; skips are recorded, never fatal

SEE ALSO:
  - schedule: invoked once per combination
  - qc:       validates the batch this package writes
*/
package run

// Aquatic bins: 4 static, 7 flowing, 10 wetland.
var AllBins = []int{4, 7, 10}

// Drift/runoff offset distances from the treated field.
var AllDistances = []string{"000m", "030m", "060m", "090m", "120m", "150m"}

// Incorporation depths (cm) for buried application methods.
var AllDepths = []int{2, 4, 6, 8, 10, 12}

// Application methods. 1 bare ground, 2 foliar, 3-7 buried variants.
var AllAppMethods = []int{1, 2, 3, 4, 5, 6, 7}

var BuriedAppMethods = []int{3, 4, 5, 6, 7}

const (
	FoliarAppMethod = 2
	TBandAppMethod  = 5

	// DriftOnlyAppMethod is substituted when a run models drift alone.
	DriftOnlyAppMethod = 4
	// DriftOnlyDepth is the fixed incorporation depth for drift-only runs.
	DriftOnlyDepth = 8

	// NoDriftProfile is forced for buried application methods.
	NoDriftProfile = "G-NODRIFT"
)

// Transport mechanisms: runoff plus drift, runoff only, drift only.
const (
	TransportRunoffDrift = "RD"
	TransportRunoff      = "R"
	TransportDrift       = "D"
)

func isBuried(method int) bool {
	for _, m := range BuriedAppMethods {
		if m == method {
			return true
		}
	}
	return false
}
