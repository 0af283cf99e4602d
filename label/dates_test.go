package label_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aquasim/appdate-engine/label"
)

// =============================================================================
// INTERVAL CLASSIFICATION
// =============================================================================

func TestClassify_GrowingSeasonIsInclusiveOnBothEnds(t *testing.T) {
	// GIVEN a growing-season crop (harvest after emergence)
	emergence := label.NewDay(time.May, 1)
	harvest := label.NewDay(time.September, 15)

	// THEN the emergence and harvest days themselves are post-emergence
	assert.Equal(t, label.PostEmergence, label.Classify(emergence, emergence, harvest),
		"emergence day must classify as post-emergence")
	assert.Equal(t, label.PostEmergence, label.Classify(harvest, emergence, harvest),
		"harvest day must classify as post-emergence")
	assert.Equal(t, label.PostEmergence, label.Classify(label.NewDay(time.July, 4), emergence, harvest))

	// AND days outside the season are pre-emergence
	assert.Equal(t, label.PreEmergence, label.Classify(label.NewDay(time.April, 30), emergence, harvest))
	assert.Equal(t, label.PreEmergence, label.Classify(label.NewDay(time.September, 16), emergence, harvest))
	assert.Equal(t, label.PreEmergence, label.Classify(label.NewDay(time.January, 1), emergence, harvest))
}

func TestClassify_OverwinterIsExclusiveBetweenHarvestAndEmergence(t *testing.T) {
	// GIVEN an overwinter crop (harvest before emergence)
	emergence := label.NewDay(time.October, 1)
	harvest := label.NewDay(time.June, 15)

	// THEN days strictly between harvest and emergence are pre-emergence
	assert.Equal(t, label.PreEmergence, label.Classify(label.NewDay(time.June, 16), emergence, harvest))
	assert.Equal(t, label.PreEmergence, label.Classify(label.NewDay(time.August, 1), emergence, harvest))
	assert.Equal(t, label.PreEmergence, label.Classify(label.NewDay(time.September, 30), emergence, harvest))

	// AND the boundary days themselves are post-emergence (exclusive window)
	assert.Equal(t, label.PostEmergence, label.Classify(harvest, emergence, harvest),
		"harvest day is outside the exclusive pre-emergence window")
	assert.Equal(t, label.PostEmergence, label.Classify(emergence, emergence, harvest),
		"emergence day is outside the exclusive pre-emergence window")
	assert.Equal(t, label.PostEmergence, label.Classify(label.NewDay(time.December, 25), emergence, harvest))
	assert.Equal(t, label.PostEmergence, label.Classify(label.NewDay(time.March, 1), emergence, harvest))
}

// =============================================================================
// DAY ARITHMETIC
// =============================================================================

func TestDay_InReferenceYearFoldsAfterArithmetic(t *testing.T) {
	// GIVEN a date near the end of the year
	d := label.NewDay(time.December, 20)

	// WHEN arithmetic carries it into the next year and we fold
	next := d.AddDays(20)
	folded := next.InReferenceYear()

	// THEN the month/day survive and the year snaps back
	assert.Equal(t, 2022, next.Year())
	assert.Equal(t, label.ReferenceYear, folded.Year())
	assert.Equal(t, time.January, folded.Month())
	assert.Equal(t, 9, folded.DayOfMonth())
}

func TestDay_DaysBetweenIsSigned(t *testing.T) {
	a := label.NewDay(time.May, 1)
	b := label.NewDay(time.May, 15)

	assert.Equal(t, 14, label.DaysBetween(a, b))
	assert.Equal(t, -14, label.DaysBetween(b, a))
	assert.Equal(t, 14, label.AbsDaysBetween(b, a))
}

func TestDaysInMonth_ReferenceYearIsNotLeap(t *testing.T) {
	assert.Equal(t, 28, label.DaysInMonth(time.February))
	assert.Equal(t, 31, label.DaysInMonth(time.January))
	assert.Equal(t, 30, label.DaysInMonth(time.June))
}
