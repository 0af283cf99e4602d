package run

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aquasim/appdate-engine/label"
)

// =============================================================================
// SCENARIO DATES
// =============================================================================

// Assessment selects the scenario file convention.
type Assessment string

const (
	// AssessmentESA uses legacy .scn files with one value per line.
	AssessmentESA Assessment = "esa"
	// AssessmentFIFRA uses .scn2 files with a CSV crop line.
	AssessmentFIFRA Assessment = "fifra"
)

// ScenarioDates resolves a scenario file name to its crop emergence and
// harvest dates.
type ScenarioDates interface {
	Dates(scenario string) (emergence, harvest label.Day, err error)
}

// ScenarioName builds the scenario base and file name for a record in a
// HUC. FIFRA scenarios encode the sorption class letter taken from the
// scenario directory layout.
func ScenarioName(scenarioBase, huc2 string, assessment Assessment, kocLetter string) (base, file string) {
	if assessment == AssessmentFIFRA {
		base = fmt.Sprintf("%s-r%s-%s_V4", scenarioBase, huc2, kocLetter)
		return base, base + ".scn2"
	}
	base = scenarioBase + huc2
	return base, base + ".scn"
}

// KocLetterForDir maps a FIFRA scenario directory name to its sorption
// class letter.
func KocLetterForDir(dir string) (string, error) {
	switch filepath.Base(dir) {
	case "Koc under 100":
		return "A", nil
	case "Koc 100 to 3000":
		return "B", nil
	case "Koc over 3000":
		return "C", nil
	}
	return "", fmt.Errorf("scenario directory %q does not name a sorption class", dir)
}

// FileScenarios reads emergence/harvest dates from scenario files in a
// directory, memoizing per file name.
type FileScenarios struct {
	Dir        string
	Assessment Assessment

	mu    sync.Mutex
	cache map[string][2]label.Day
}

// Dates reads the scenario's crop dates, from cache when already seen.
func (s *FileScenarios) Dates(scenario string) (label.Day, label.Day, error) {
	s.mu.Lock()
	if d, ok := s.cache[scenario]; ok {
		s.mu.Unlock()
		return d[0], d[1], nil
	}
	s.mu.Unlock()

	emergence, harvest, err := s.read(scenario)
	if err != nil {
		return label.Day{}, label.Day{}, err
	}

	s.mu.Lock()
	if s.cache == nil {
		s.cache = make(map[string][2]label.Day)
	}
	s.cache[scenario] = [2]label.Day{emergence, harvest}
	s.mu.Unlock()
	return emergence, harvest, nil
}

func (s *FileScenarios) read(scenario string) (label.Day, label.Day, error) {
	lines, err := readLines(filepath.Join(s.Dir, scenario), 33)
	if err != nil {
		return label.Day{}, label.Day{}, fmt.Errorf("scenario %s: %w", scenario, err)
	}

	var eDay, eMonth, hDay, hMonth int
	if s.Assessment == AssessmentFIFRA {
		// Crop dates live on line 32 as a CSV list:
		// emergence day, month, ..., harvest day, month.
		fields := strings.Split(line(lines, 32), ",")
		if len(fields) < 6 {
			return label.Day{}, label.Day{}, fmt.Errorf("scenario %s: crop line has %d fields", scenario, len(fields))
		}
		if eDay, err = atoi(fields[0]); err == nil {
			if eMonth, err = atoi(fields[1]); err == nil {
				if hDay, err = atoi(fields[4]); err == nil {
					hMonth, err = atoi(fields[5])
				}
			}
		}
	} else {
		// Legacy layout: one value per line.
		if eDay, err = atoi(line(lines, 28)); err == nil {
			if eMonth, err = atoi(line(lines, 29)); err == nil {
				if hDay, err = atoi(line(lines, 32)); err == nil {
					hMonth, err = atoi(line(lines, 33))
				}
			}
		}
	}
	if err != nil {
		return label.Day{}, label.Day{}, fmt.Errorf("scenario %s: %w", scenario, err)
	}

	if eMonth < 1 || eMonth > 12 || hMonth < 1 || hMonth > 12 {
		return label.Day{}, label.Day{}, fmt.Errorf("scenario %s: month out of range", scenario)
	}
	return label.NewDay(time.Month(eMonth), eDay), label.NewDay(time.Month(hMonth), hDay), nil
}

func readLines(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lines := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() && len(lines) < n {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(lines) < n {
		return nil, fmt.Errorf("file has %d lines, want %d", len(lines), n)
	}
	return lines, nil
}

// line returns the 1-based line.
func line(lines []string, n int) string { return lines[n-1] }

func atoi(s string) (int, error) { return strconv.Atoi(strings.TrimSpace(s)) }
