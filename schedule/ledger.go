/*
Package schedule assigns application dates and rates for one label record
under its restrictions.

PURPOSE:
  Given a derived label.Record (scenario dates attached), a Scheduler walks
  candidate start dates month by month, grows a chain of applications from
  each via minimum-reapplication-interval steps, and commits every
  application that passes the validity gate, until the label's annual,
  interval and tier budgets are spent or no further date can be placed.

KEY CONCEPTS:
  - Ledger:      per-run counters of committed applications and amounts
  - SelectRate:  picks the rate tier for a candidate date
  - AppValid:    the full validity gate for a (date, tier) pair
  - ClampRate:   trims a rate to interval and annual headroom
  - NextApplication: forward/reverse MRI stepping from the current date
  - NoMoreApps:  termination oracle for the whole run

SEE ALSO:
  - label:  the record model, interval classification, windows
  - qc:     independent re-validation of finished schedules
*/
package schedule

import (
	"github.com/shopspring/decimal"

	"github.com/aquasim/appdate-engine/label"
)

// =============================================================================
// LEDGER
// =============================================================================

// Key indexes one counter row of the ledger.
type Key int

const (
	KeyTotal Key = iota
	KeyPreEmergence
	KeyPostEmergence
	KeyRate1
	KeyRate2
	KeyRate3
	KeyRate4

	numKeys
)

// RateKey maps a zero-based tier index to its ledger key.
func RateKey(tier int) Key { return KeyRate1 + Key(tier) }

// IntervalKey maps an interval to its ledger key.
func IntervalKey(iv label.Interval) Key {
	if iv == label.PreEmergence {
		return KeyPreEmergence
	}
	return KeyPostEmergence
}

func (k Key) String() string {
	switch k {
	case KeyTotal:
		return "Total"
	case KeyPreEmergence:
		return "PreEmergence"
	case KeyPostEmergence:
		return "PostEmergence"
	case KeyRate1:
		return "Rate1"
	case KeyRate2:
		return "Rate2"
	case KeyRate3:
		return "Rate3"
	case KeyRate4:
		return "Rate4"
	}
	return "Unknown"
}

// Application is one committed application: a date and the rate applied.
type Application struct {
	Date label.Day
	Rate decimal.Decimal
}

// Ledger tracks how much of each budget a run has consumed. Commit is the
// only mutation; a fresh zero Ledger starts every run.
type Ledger struct {
	apps    [numKeys]int
	applied [numKeys]decimal.Decimal
}

// Commit records one application against the total, its interval and its
// rate tier.
func (l *Ledger) Commit(date label.Day, rate decimal.Decimal, iv label.Interval, tier int) Application {
	for _, k := range [3]Key{KeyTotal, IntervalKey(iv), RateKey(tier)} {
		l.apps[k]++
		l.applied[k] = l.applied[k].Add(rate)
	}
	return Application{Date: date, Rate: rate}
}

// Apps returns the committed application count under a key.
func (l *Ledger) Apps(k Key) int { return l.apps[k] }

// Applied returns the committed amount under a key.
func (l *Ledger) Applied(k Key) decimal.Decimal { return l.applied[k] }
