package label

import (
	"fmt"
	"time"
)

// =============================================================================
// DAY - Day-granularity date pinned to the reference year
// =============================================================================

// ReferenceYear is the arbitrary non-leap year every date in the engine is
// expressed in. Scenario files only carry month/day pairs, so all date math
// happens inside one synthetic calendar year.
const ReferenceYear = 2021

// Day is a calendar day. Arithmetic can carry a Day outside the reference
// year; callers fold it back with InReferenceYear before comparing.
type Day struct {
	t time.Time
}

// NewDay builds a Day in the reference year.
func NewDay(month time.Month, day int) Day {
	return Day{t: time.Date(ReferenceYear, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf truncates an arbitrary time to day granularity.
func DayOf(t time.Time) Day {
	return Day{t: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// Comparison
func (d Day) Before(other Day) bool        { return d.t.Before(other.t) }
func (d Day) After(other Day) bool         { return d.t.After(other.t) }
func (d Day) Equal(other Day) bool         { return d.t.Equal(other.t) }
func (d Day) BeforeOrEqual(other Day) bool { return !d.t.After(other.t) }
func (d Day) AfterOrEqual(other Day) bool  { return !d.t.Before(other.t) }

// Arithmetic
func (d Day) AddDays(n int) Day { return Day{t: d.t.AddDate(0, 0, n)} }

// InReferenceYear forces the year component back to the reference year,
// keeping month and day. Used after MRI arithmetic crosses a year boundary.
func (d Day) InReferenceYear() Day {
	if d.t.Year() == ReferenceYear {
		return d
	}
	return Day{t: time.Date(ReferenceYear, d.t.Month(), d.t.Day(), 0, 0, 0, 0, time.UTC)}
}

// Properties
func (d Day) Year() int         { return d.t.Year() }
func (d Day) Month() time.Month { return d.t.Month() }
func (d Day) DayOfMonth() int   { return d.t.Day() }
func (d Day) IsZero() bool      { return d.t.IsZero() }

func (d Day) String() string { return d.t.Format("2006-01-02") }

// MonthDay formats as MM/DD for batch-file output.
func (d Day) MonthDay() string { return fmt.Sprintf("%02d/%02d", d.t.Month(), d.t.Day()) }

// DaysBetween returns to − from in whole days (negative when to < from).
func DaysBetween(from, to Day) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}

// AbsDaysBetween returns |to − from| in whole days.
func AbsDaysBetween(a, b Day) int {
	n := DaysBetween(a, b)
	if n < 0 {
		return -n
	}
	return n
}

// DaysInMonth returns the length of a month in the reference year.
func DaysInMonth(month time.Month) int {
	first := time.Date(ReferenceYear, month, 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 1, -1).Day()
}

// =============================================================================
// INTERVAL - Crop-lifecycle phase of a candidate date
// =============================================================================

// Interval is the crop-lifecycle phase an application date falls into.
// This is a domain term, not a time span.
type Interval int

const (
	PreEmergence Interval = iota
	PostEmergence
)

func (iv Interval) String() string {
	if iv == PreEmergence {
		return "PreEmergence"
	}
	return "PostEmergence"
}

// Intervals lists both phases in a fixed order.
var Intervals = [2]Interval{PreEmergence, PostEmergence}

// Classify determines the interval of an application date.
//
// Growing-season crops (harvest after emergence) treat the post-emergence
// window as inclusive on both ends: a date on the emergence or harvest date
// is post-emergence. Overwinter crops (harvest on or before emergence)
// invert the ordering, with an exclusive pre-emergence window between
// harvest and emergence.
func Classify(date, emergence, harvest Day) Interval {
	if harvest.After(emergence) {
		if emergence.BeforeOrEqual(date) && date.BeforeOrEqual(harvest) {
			return PostEmergence
		}
		return PreEmergence
	}
	if harvest.Before(date) && date.Before(emergence) {
		return PreEmergence
	}
	return PostEmergence
}
