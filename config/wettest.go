package config

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// WETTEST MONTH TABLE
// =============================================================================

// LoadWettestMonths reads the wettest month ranking table: one row per
// HUC2, the remaining columns holding month numbers ranked wettest first.
func LoadWettestMonths(r io.Reader) (map[string][]time.Month, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: wettest month table: %v", ErrInvalidConfig, err)
	}
	if len(header) < 2 || strings.TrimSpace(header[0]) != "HUC2" {
		return nil, fmt.Errorf("%w: wettest month table: first column must be HUC2", ErrInvalidConfig)
	}

	table := make(map[string][]time.Month)
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: wettest month table line %d: %v", ErrInvalidConfig, line, err)
		}

		months := make([]time.Month, 0, len(row)-1)
		for _, cell := range row[1:] {
			m, err := strconv.Atoi(strings.TrimSpace(cell))
			if err != nil || m < 1 || m > 12 {
				return nil, fmt.Errorf("%w: wettest month table line %d: bad month %q", ErrInvalidConfig, line, cell)
			}
			months = append(months, time.Month(m))
		}
		table[strings.TrimSpace(row[0])] = months
	}
	return table, nil
}
