package schedule

import (
	"github.com/shopspring/decimal"

	"github.com/aquasim/appdate-engine/label"
)

// =============================================================================
// VALIDITY GATE AND RATE CLAMP
// =============================================================================

// intervalAmtTolerance keeps an interval open for one more application when
// a sliver of amount headroom remains.
var intervalAmtTolerance = decimal.NewFromFloat(0.001)

// AppValid is the full gate for committing one application of the selected
// tier on the candidate date. Callers pass the tier returned by SelectRate;
// a failed selection never reaches the gate.
func AppValid(rec *label.Record, date label.Day, iv label.Interval, tier int, apps []Application, led *Ledger) bool {
	t := rec.Rate(tier)

	if !t.ValidIn(iv) {
		return false
	}
	if !rec.IntervalMaxNumApps(iv).AllowsAnother(led.Apps(IntervalKey(iv))) {
		return false
	}
	if rec.IntervalMaxAmt(iv).Exceeds(led.Applied(IntervalKey(iv)).Add(intervalAmtTolerance)) {
		return false
	}
	if !t.Window().Admits(date) {
		return false
	}
	mri, _ := t.MRI(iv)
	if withinMRI(date, apps, mri) {
		return false
	}
	if withinPHI(rec, date, iv) {
		return false
	}
	return true
}

// withinMRI reports whether date falls strictly inside the minimum
// reapplication interval of any committed application, in either direction.
func withinMRI(date label.Day, apps []Application, mri int) bool {
	for _, app := range apps {
		if label.AbsDaysBetween(app.Date, date) < mri {
			return true
		}
	}
	return false
}

// withinPHI applies the pre-harvest interval rule. Pre-emergence dates are
// only barred on the eve of emergence; post-emergence dates are barred on
// (harvest-PHI, harvest].
func withinPHI(rec *label.Record, date label.Day, iv label.Interval) bool {
	if iv == label.PreEmergence {
		return date.Equal(rec.Emergence().AddDays(-1))
	}
	cutoff := rec.Harvest().AddDays(-rec.PHI)
	return date.After(cutoff) && date.BeforeOrEqual(rec.Harvest())
}

// ClampRate trims a rate so the commit stays within the interval amount cap
// and then the annual amount cap. The clamp only lowers; a result of zero
// or less means nothing can be applied.
func ClampRate(rec *label.Record, rate decimal.Decimal, iv label.Interval, led *Ledger) decimal.Decimal {
	ivAmt := led.Applied(IntervalKey(iv))
	if rec.IntervalMaxAmt(iv).Exceeds(ivAmt.Add(rate)) {
		rate = rec.IntervalMaxAmt(iv).Value().Sub(ivAmt)
	}

	total := led.Applied(KeyTotal)
	if rate.IsPositive() && rec.MaxAnnAmt.Exceeds(total.Add(rate)) {
		rate = rec.MaxAnnAmt.Value().Sub(total)
	}
	return rate
}
