package schedule

import (
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aquasim/appdate-engine/label"
)

// =============================================================================
// SCHEDULER
// =============================================================================

// maxPasses bounds how many times the scheduler replays the full candidate
// stream. Random start dates can leave budget unspent on a pass; replaying
// gives later draws a chance to place the remainder.
const maxPasses = 5

// Scheduler assigns application dates and rates for one derived label
// record.
type Scheduler struct {
	Mode             Mode
	RandomStartDates bool

	// Seed fixes the random day draws. When set, the generator reseeds
	// before every draw so a given month always yields the same day.
	Seed *int64

	// WettestMonths is the ranked month order for ModeWettestMonth,
	// wettest first. Ignored in ModeMaxRate.
	WettestMonths []time.Month

	Log logrus.FieldLogger

	rng *rand.Rand
}

// Assign runs the full assignment for one record and returns the committed
// applications in commitment order together with the final ledger.
func (s *Scheduler) Assign(rec *label.Record) ([]Application, *Ledger) {
	led := &Ledger{}
	var apps []Application

	stream := s.candidateDates(rec)

	done := false
	for pass := 0; pass < maxPasses && !done; pass++ {
		for _, potential := range stream {
			start := s.startDate(potential)

			cur := evaluate(rec, start, apps, led, s.Mode)
			if cur.ValidRate {
				cur.Rate = ClampRate(rec, cur.Rate, cur.Interval, led)
			}

			chainStart := start
			reverse := false

			for cur.ValidDate && cur.ValidRate && cur.Rate.IsPositive() &&
				rec.Rate(cur.Tier).MaxNumApps.AllowsAnother(led.Apps(RateKey(cur.Tier))) &&
				rec.MaxAnnNumApps.AllowsAnother(led.Apps(KeyTotal)) &&
				!rec.MaxAnnAmt.Exceeds(led.Applied(KeyTotal).Add(cur.Rate)) {

				apps = append(apps, led.Commit(cur.Date, cur.Rate, cur.Interval, cur.Tier))

				cur, reverse = NextApplication(rec, cur, chainStart, reverse, apps, led, s.Mode)
				if cur.ValidRate {
					cur.Rate = ClampRate(rec, cur.Rate, cur.Interval, led)
				}
			}

			if NoMoreApps(rec, led) {
				done = true
				break
			}
		}
	}

	if s.Log != nil {
		s.Log.WithFields(logrus.Fields{
			"descriptor": rec.Descriptor,
			"apps":       led.Apps(KeyTotal),
			"applied":    led.Applied(KeyTotal),
		}).Debug("assignment finished")
	}

	return apps, led
}

// candidateDates lists every day of the year, month by month. ModeMaxRate
// walks months sequentially; ModeWettestMonth walks them wettest first.
func (s *Scheduler) candidateDates(rec *label.Record) []label.Day {
	months := make([]time.Month, 0, 12)
	if s.Mode == ModeWettestMonth && len(s.WettestMonths) > 0 {
		months = append(months, s.WettestMonths...)
	} else {
		for m := time.January; m <= time.December; m++ {
			months = append(months, m)
		}
	}

	var dates []label.Day
	for _, m := range months {
		for d := 1; d <= label.DaysInMonth(m); d++ {
			dates = append(dates, label.NewDay(m, d))
		}
	}
	return dates
}

// startDate resolves a candidate into the actual chain start. With random
// start dates on, the day of month is drawn at random; a fixed seed makes
// the draw deterministic per month by reseeding before every draw.
func (s *Scheduler) startDate(potential label.Day) label.Day {
	if !s.RandomStartDates {
		return potential
	}
	if s.Seed != nil {
		s.rng = rand.New(rand.NewSource(*s.Seed))
	} else if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	day := 1 + s.rng.Intn(label.DaysInMonth(potential.Month()))
	return label.NewDay(potential.Month(), day)
}
