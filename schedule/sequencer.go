package schedule

import (
	"github.com/shopspring/decimal"

	"github.com/aquasim/appdate-engine/label"
)

// =============================================================================
// DATE SEQUENCER
// =============================================================================

// Candidate is one proposed application in a chain: a date, its interval,
// the selected tier/rate, and the two validity verdicts.
type Candidate struct {
	Date      label.Day
	Interval  label.Interval
	Tier      int
	Rate      decimal.Decimal
	ValidRate bool
	ValidDate bool
}

// NextApplication steps the chain from the current committed application.
// Forward stepping adds the committed tier's MRI and folds the year. When
// the forward candidate has a usable rate but fails the gate, the chain
// flips to reverse assignment, anchored one MRI before the chain's start
// date; reverse steps keep subtracting the MRI and never flip back.
//
// The returned reverse flag carries the (possibly flipped) direction for
// the next step.
func NextApplication(rec *label.Record, cur Candidate, chainStart label.Day, reverse bool, apps []Application, led *Ledger, mode Mode) (Candidate, bool) {
	mri, _ := rec.Rate(cur.Tier).MRI(cur.Interval)

	if reverse {
		return nextReverse(rec, cur.Date, mri, apps, led, mode), true
	}

	forward := cur.Date.AddDays(mri).InReferenceYear()
	next := evaluate(rec, forward, apps, led, mode)
	if !next.ValidRate {
		return next, false
	}
	if next.ValidDate {
		return next, false
	}

	// Forward is blocked; restart backwards from the chain's start date.
	return nextReverse(rec, chainStart, mri, apps, led, mode), true
}

func nextReverse(rec *label.Record, from label.Day, mri int, apps []Application, led *Ledger, mode Mode) Candidate {
	date := from.AddDays(-mri).InReferenceYear()
	return evaluate(rec, date, apps, led, mode)
}

// evaluate builds a fully judged candidate for a date: interval, tier
// selection, and the validity gate.
func evaluate(rec *label.Record, date label.Day, apps []Application, led *Ledger, mode Mode) Candidate {
	iv := label.Classify(date, rec.Emergence(), rec.Harvest())
	tier, rate, ok := SelectRate(rec, led, iv, date, mode)

	c := Candidate{
		Date:      date,
		Interval:  iv,
		Tier:      tier,
		Rate:      rate,
		ValidRate: ok,
	}
	if ok {
		c.ValidDate = AppValid(rec, date, iv, tier, apps, led)
	}
	return c
}

// =============================================================================
// TERMINATION
// =============================================================================

// maxAppsPerRun is the aquatic model's hard ceiling on applications in a
// single run.
const maxAppsPerRun = 50

// NoMoreApps reports whether the run is finished: the platform ceiling or
// an annual cap is reached, both intervals are spent, or every existing
// tier has used its application count.
func NoMoreApps(rec *label.Record, led *Ledger) bool {
	if led.Apps(KeyTotal) >= maxAppsPerRun {
		return true
	}

	if rec.MaxAnnNumApps.ReachedBy(led.Apps(KeyTotal)) ||
		rec.MaxAnnAmt.ReachedBy(led.Applied(KeyTotal)) {
		return true
	}

	bothSpent := true
	for _, iv := range label.Intervals {
		k := IntervalKey(iv)
		if !rec.IntervalMaxNumApps(iv).ReachedBy(led.Apps(k)) &&
			!rec.IntervalMaxAmt(iv).ReachedBy(led.Applied(k)) {
			bothSpent = false
		}
	}
	if bothSpent {
		return true
	}

	for i := 0; i < label.MaxRateTiers; i++ {
		t := rec.Rate(i)
		if t.Exists() && !t.MaxNumApps.ReachedBy(led.Apps(RateKey(i))) {
			return false
		}
	}
	return true
}
