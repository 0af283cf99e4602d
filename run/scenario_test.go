package run_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquasim/appdate-engine/label"
	"github.com/aquasim/appdate-engine/run"
)

// =============================================================================
// SCENARIO NAMING
// =============================================================================

func TestScenarioName_LegacyAppendsHUC(t *testing.T) {
	base, file := run.ScenarioName("MOcornSTD", "07", run.AssessmentESA, "")

	assert.Equal(t, "MOcornSTD07", base)
	assert.Equal(t, "MOcornSTD07.scn", file)
}

func TestScenarioName_FIFRAEncodesRegionAndSorptionClass(t *testing.T) {
	base, file := run.ScenarioName("MOcornSTD", "07", run.AssessmentFIFRA, "B")

	assert.Equal(t, "MOcornSTD-r07-B_V4", base)
	assert.Equal(t, "MOcornSTD-r07-B_V4.scn2", file)
}

func TestKocLetterForDir(t *testing.T) {
	for dir, want := range map[string]string{
		"/data/Koc under 100":   "A",
		"/data/Koc 100 to 3000": "B",
		"Koc over 3000":         "C",
	} {
		letter, err := run.KocLetterForDir(dir)
		require.NoError(t, err)
		assert.Equal(t, want, letter)
	}

	_, err := run.KocLetterForDir("/data/scenarios")
	assert.Error(t, err)
}

// =============================================================================
// SCENARIO FILE READING
// =============================================================================

// writeScenario writes a 33+ line scenario file with the given lines set,
// everything else zero.
func writeScenario(t *testing.T, dir, name string, values map[int]string) {
	t.Helper()
	lines := make([]string, 33)
	for i := range lines {
		lines[i] = "0"
	}
	for n, v := range values {
		lines[n-1] = v
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func TestFileScenarios_LegacyLayout(t *testing.T) {
	// GIVEN emergence day/month on lines 28/29 and harvest on 32/33
	dir := t.TempDir()
	writeScenario(t, dir, "MOcornSTD07.scn", map[int]string{28: "1", 29: "5", 32: "15", 33: "9"})
	scn := &run.FileScenarios{Dir: dir, Assessment: run.AssessmentESA}

	emergence, harvest, err := scn.Dates("MOcornSTD07.scn")
	require.NoError(t, err)

	assert.True(t, emergence.Equal(label.NewDay(time.May, 1)))
	assert.True(t, harvest.Equal(label.NewDay(time.September, 15)))
}

func TestFileScenarios_FIFRALayout(t *testing.T) {
	// GIVEN the crop CSV on line 32: eDay, eMonth, .., .., hDay, hMonth
	dir := t.TempDir()
	writeScenario(t, dir, "MOcornSTD-r07-B_V4.scn2", map[int]string{32: "1,5,0,0,15,9"})
	scn := &run.FileScenarios{Dir: dir, Assessment: run.AssessmentFIFRA}

	emergence, harvest, err := scn.Dates("MOcornSTD-r07-B_V4.scn2")
	require.NoError(t, err)

	assert.True(t, emergence.Equal(label.NewDay(time.May, 1)))
	assert.True(t, harvest.Equal(label.NewDay(time.September, 15)))
}

func TestFileScenarios_MemoizesPerFile(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "a.scn", map[int]string{28: "1", 29: "5", 32: "15", 33: "9"})
	scn := &run.FileScenarios{Dir: dir, Assessment: run.AssessmentESA}

	first, _, err := scn.Dates("a.scn")
	require.NoError(t, err)

	// Rewriting the file must not change the cached answer.
	writeScenario(t, dir, "a.scn", map[int]string{28: "2", 29: "6", 32: "15", 33: "9"})
	second, _, err := scn.Dates("a.scn")
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
}

func TestFileScenarios_MissingFileAndBadMonth(t *testing.T) {
	dir := t.TempDir()
	scn := &run.FileScenarios{Dir: dir, Assessment: run.AssessmentESA}

	_, _, err := scn.Dates("missing.scn")
	assert.Error(t, err)

	writeScenario(t, dir, "bad.scn", map[int]string{28: "1", 29: "13", 32: "15", 33: "9"})
	_, _, err = scn.Dates("bad.scn")
	assert.Error(t, err)
}
