/*
Package label models agronomic-practices label records: the regulatory
constraints governing how a pesticide may be applied for one crop/use.

PURPOSE:
  A Record carries the annual, per-interval (pre/post emergence) and
  per-rate-tier restrictions from one row of the agronomic practices table.
  The scheduling engine consumes Records; it never touches the tabular
  source directly.

KEY CONCEPTS:
  - Record:     one crop/use row; immutable once derived for a season
  - RateTier:   one of up to four ranked application-rate options
  - Cap/Limit:  optional amount/count ceilings (absent = unlimited)
  - Interval:   PreEmergence or PostEmergence crop-lifecycle phase
  - Window:     date restriction parsed from a tier's instruction code

LIFECYCLE:
  rec := ParseTableCSV(...)          // lbs/acre, no season attached
  rec = rec.Normalize()              // convert amounts to kg/ha
  run, err := rec.WithSeason(e, h)   // attach scenario dates, derive
                                     // valid intervals + windows

SEE ALSO:
  - dates.go:       reference-year day math and interval classification
  - instruction.go: instruction window grammar
  - schedule:       the assignment algorithm consuming Records
*/
package label

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LbsAcreToKgHa converts pounds of active ingredient per acre to kilograms
// per hectare. All amounts are normalized to kg/ha before scheduling so the
// output matches the aquatic model's expected units.
var LbsAcreToKgHa = decimal.NewFromFloat(1.120851)

// MaxRateTiers is the number of rate tier slots on a label record.
const MaxRateTiers = 4

// =============================================================================
// RATE TIER
// =============================================================================

// RateTier is one ranked application-rate option. Tier order defines
// preference (tier 1 is tried first), not magnitude.
type RateTier struct {
	// MaxAppRate is the application rate for this tier (mass/area).
	// Nil means the tier does not exist on the label.
	MaxAppRate *decimal.Decimal

	// MaxNumApps caps how many applications this tier may make.
	MaxNumApps Limit

	// Minimum reapplication intervals, days. A tier is valid in an
	// interval exactly when that interval's MRI is set; at least one must
	// be set for the tier to be usable.
	PreEmergenceMRI  *int
	PostEmergenceMRI *int

	// Instruction is the raw date-instruction code ("" = none).
	Instruction string

	// Derived by Record.WithSeason.
	window         *Window
	validIntervals [2]bool
}

// Exists reports whether the tier is defined on the label.
func (t *RateTier) Exists() bool { return t.MaxAppRate != nil }

// Rate returns the tier's application rate. Zero when the tier is absent.
func (t *RateTier) Rate() decimal.Decimal {
	if t.MaxAppRate == nil {
		return decimal.Zero
	}
	return *t.MaxAppRate
}

// ValidIn reports whether the tier may apply in the given interval.
func (t *RateTier) ValidIn(iv Interval) bool { return t.validIntervals[iv] }

// ValidIntervalCount returns how many intervals the tier is valid in (0-2).
func (t *RateTier) ValidIntervalCount() int {
	n := 0
	for _, ok := range t.validIntervals {
		if ok {
			n++
		}
	}
	return n
}

// SoleValidInterval returns the tier's only valid interval. Meaningful only
// when ValidIntervalCount() == 1.
func (t *RateTier) SoleValidInterval() Interval {
	if t.validIntervals[PreEmergence] {
		return PreEmergence
	}
	return PostEmergence
}

// MRI returns the tier's minimum reapplication interval for an interval.
func (t *RateTier) MRI(iv Interval) (int, bool) {
	var p *int
	if iv == PreEmergence {
		p = t.PreEmergenceMRI
	} else {
		p = t.PostEmergenceMRI
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Window returns the tier's derived instruction window, nil when the tier
// carries no instruction (a nil window admits every date).
func (t *RateTier) Window() *Window { return t.window }

// =============================================================================
// RECORD
// =============================================================================

// Record is one agronomic-practices row: the label constraints for a single
// crop/use. Immutable once derived; the scheduler only reads it.
type Record struct {
	Descriptor string // run descriptor, unique per row
	LabeledUse string // crop/use name, keys the crop-to-state lookup
	Scenario   string // scenario base name, keys scenario files
	States     string // region text: All, EastofRockies, All-AK,HI, CA,OR, ...

	ApplicationMethod int
	DriftProfile      string

	MaxAnnNumApps Limit
	MaxAnnAmt     Cap
	PHI           int // pre-harvest interval, days (0 = none)

	PreEmergenceMaxNumApps  Limit
	PreEmergenceMaxAmt      Cap
	PostEmergenceMaxNumApps Limit
	PostEmergenceMaxAmt     Cap

	Rates [MaxRateTiers]RateTier

	// Scenario dates, set by WithSeason.
	emergence Day
	harvest   Day
	derived   bool
}

// Emergence returns the crop emergence date. Valid only after WithSeason.
func (r *Record) Emergence() Day { return r.emergence }

// Harvest returns the crop harvest date. Valid only after WithSeason.
func (r *Record) Harvest() Day { return r.harvest }

// Derived reports whether WithSeason has run.
func (r *Record) Derived() bool { return r.derived }

// Rate returns the tier at a zero-based index.
func (r *Record) Rate(tier int) *RateTier { return &r.Rates[tier] }

// IntervalMaxNumApps returns the per-interval application-count cap.
func (r *Record) IntervalMaxNumApps(iv Interval) Limit {
	if iv == PreEmergence {
		return r.PreEmergenceMaxNumApps
	}
	return r.PostEmergenceMaxNumApps
}

// IntervalMaxAmt returns the per-interval amount cap.
func (r *Record) IntervalMaxAmt(iv Interval) Cap {
	if iv == PreEmergence {
		return r.PreEmergenceMaxAmt
	}
	return r.PostEmergenceMaxAmt
}

// HasAnyMRI reports whether any tier defines an MRI for the interval.
// Used by the validator to decide whether an interval is labeled at all.
func (r *Record) HasAnyMRI(iv Interval) bool {
	for i := range r.Rates {
		if _, ok := r.Rates[i].MRI(iv); ok {
			return true
		}
	}
	return false
}

// Normalize converts every amount field from lbs/acre to kg/ha. The table
// is authored in lbs/acre; the aquatic model consumes kg/ha.
func (r Record) Normalize() Record {
	r.MaxAnnAmt = r.MaxAnnAmt.Mul(LbsAcreToKgHa)
	r.PreEmergenceMaxAmt = r.PreEmergenceMaxAmt.Mul(LbsAcreToKgHa)
	r.PostEmergenceMaxAmt = r.PostEmergenceMaxAmt.Mul(LbsAcreToKgHa)
	for i := range r.Rates {
		if r.Rates[i].MaxAppRate != nil {
			converted := r.Rates[i].MaxAppRate.Mul(LbsAcreToKgHa)
			r.Rates[i].MaxAppRate = &converted
		}
	}
	return r
}

// WithSeason attaches scenario emergence/harvest dates and derives the
// season-dependent tier state: valid intervals (from which MRIs are set)
// and instruction windows (anchored on the scenario dates). The receiver
// is copied; the same base Record derives independently per HUC.
func (r Record) WithSeason(emergence, harvest Day) (Record, error) {
	r.emergence = emergence
	r.harvest = harvest

	for i := range r.Rates {
		t := &r.Rates[i]
		t.validIntervals[PreEmergence] = t.PreEmergenceMRI != nil
		t.validIntervals[PostEmergence] = t.PostEmergenceMRI != nil

		w, err := ParseInstruction(t.Instruction, emergence, harvest)
		if err != nil {
			return Record{}, fmt.Errorf("label %q rate %d: %w", r.Descriptor, i+1, err)
		}
		t.window = w
	}

	r.derived = true
	return r, nil
}
