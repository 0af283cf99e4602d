package schedule

import (
	"github.com/shopspring/decimal"

	"github.com/aquasim/appdate-engine/label"
)

// =============================================================================
// RATE SELECTION
// =============================================================================

// Mode is the date-prioritization policy.
type Mode int

const (
	// ModeMaxRate walks the year month by month, spending the highest
	// rate tiers first.
	ModeMaxRate Mode = iota

	// ModeWettestMonth walks months in wettest-first ranking, so tiers
	// must be checked against the candidate date up front.
	ModeWettestMonth
)

func (m Mode) String() string {
	if m == ModeWettestMonth {
		return "WettestMonth"
	}
	return "MaxRate"
}

// SelectRate picks the first tier, in tier order, that still has budget for
// the candidate date. Returns the tier index, its rate, and whether any
// tier qualified.
//
// The two modes screen tiers differently. MaxRate mode checks the tier's
// own count budget plus, for single-interval tiers, that interval's
// headroom; it deliberately does not consult the tier's instruction window
// here, leaving window rejection to the validity gate (which cannot fall
// through to a later tier). WettestMonth mode requires the candidate's
// interval and window to match before selecting.
func SelectRate(rec *label.Record, led *Ledger, iv label.Interval, date label.Day, mode Mode) (int, decimal.Decimal, bool) {
	if mode == ModeWettestMonth {
		return selectWettestMonth(rec, led, iv, date)
	}
	return selectMaxRate(rec, led)
}

func selectMaxRate(rec *label.Record, led *Ledger) (int, decimal.Decimal, bool) {
	for i := 0; i < label.MaxRateTiers; i++ {
		t := rec.Rate(i)
		if !t.Exists() {
			continue
		}
		if !t.MaxNumApps.AllowsAnother(led.Apps(RateKey(i))) {
			continue
		}

		switch t.ValidIntervalCount() {
		case 1:
			// A tier valid in one interval only is skipped once that
			// interval's own budget is spent.
			riv := t.SoleValidInterval()
			if rec.IntervalMaxNumApps(riv).AllowsAnother(led.Apps(IntervalKey(riv))) &&
				rec.IntervalMaxAmt(riv).Under(led.Applied(IntervalKey(riv))) {
				return i, t.Rate(), true
			}
		case 2:
			return i, t.Rate(), true
		}
	}
	return 0, decimal.Zero, false
}

func selectWettestMonth(rec *label.Record, led *Ledger, iv label.Interval, date label.Day) (int, decimal.Decimal, bool) {
	for i := 0; i < label.MaxRateTiers; i++ {
		t := rec.Rate(i)
		if !t.Exists() {
			continue
		}
		if !t.MaxNumApps.AllowsAnother(led.Apps(RateKey(i))) {
			continue
		}
		if t.ValidIn(iv) && t.Window().Admits(date) {
			return i, t.Rate(), true
		}
	}
	return 0, decimal.Zero, false
}
