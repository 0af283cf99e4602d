package label

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AGRONOMIC PRACTICES TABLE - CSV loader and validation
// =============================================================================
// The table is a CSV keyed on RunDescriptor, one row per label record.
// Columns follow the authoring convention: amounts carry a _lbsacre suffix,
// rate tiers are numbered Rate1..Rate4. Blank cells mean "no restriction"
// for caps/limits and "absent" for tier fields.

// ErrBadTable wraps every table parse/validation failure.
var ErrBadTable = errors.New("invalid agronomic practices table")

var (
	anchorInstructionRe = regexp.MustCompile(`^[YN]_[HE][+-][0-9]+$`)
	rangeInstructionRe  = regexp.MustCompile(`^[YN]_[HE0-9+-]+>[HE0-9+-]+$`)
)

// ParseTableCSV reads the agronomic practices table. Records come back in
// file order with amounts still in lbs/acre; callers normalize and derive
// per-season state afterwards.
func ParseTableCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrBadTable, err)
	}
	if len(header) == 0 || strings.TrimSpace(header[0]) != "RunDescriptor" {
		return nil, fmt.Errorf("%w: first column must be RunDescriptor", ErrBadTable)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}

	var records []Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadTable, line, err)
		}

		rec, err := parseRow(row, col)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadTable, line, err)
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records", ErrBadTable)
	}
	return records, nil
}

func parseRow(row []string, col map[string]int) (Record, error) {
	p := rowParser{row: row, col: col}

	rec := Record{
		Descriptor:        p.text("RunDescriptor"),
		LabeledUse:        p.text("LabeledUse"),
		Scenario:          p.text("Scenario"),
		States:            p.text("States"),
		ApplicationMethod: p.intOr("ApplicationMethod", 0),
		DriftProfile:      p.text("DriftProfile"),
		MaxAnnNumApps:     p.limit("MaxAnnNumApps"),
		MaxAnnAmt:         p.cap("MaxAnnAmt_lbsacre"),
		PHI:               p.intOr("PHI", 0),

		PreEmergenceMaxNumApps:  p.limit("PreEmergence_MaxNumApps"),
		PreEmergenceMaxAmt:      p.cap("PreEmergence_MaxAmt_lbsacre"),
		PostEmergenceMaxNumApps: p.limit("PostEmergence_MaxNumApps"),
		PostEmergenceMaxAmt:     p.cap("PostEmergence_MaxAmt_lbsacre"),
	}

	for i := 0; i < MaxRateTiers; i++ {
		prefix := fmt.Sprintf("Rate%d_", i+1)
		rec.Rates[i] = RateTier{
			MaxAppRate:       p.amount(prefix + "MaxAppRate_lbsacre"),
			MaxNumApps:       p.limit(prefix + "MaxNumApps"),
			PreEmergenceMRI:  p.intPtr(prefix + "PreEmergenceMRI"),
			PostEmergenceMRI: p.intPtr(prefix + "PostEmergenceMRI"),
			Instruction:      p.text(prefix + "Instructions"),
		}
	}

	if p.err != nil {
		return Record{}, p.err
	}
	if err := validateRecord(&rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// validateRecord enforces the authoring rules: annual caps and PHI are
// mandatory, tier 1 needs a rate, an MRI implies a rate, instruction codes
// match the documented grammar.
func validateRecord(rec *Record) error {
	if rec.Descriptor == "" {
		return errors.New("empty RunDescriptor")
	}
	if rec.MaxAnnAmt.IsUnlimited() || rec.MaxAnnNumApps.IsUnlimited() {
		return fmt.Errorf("%s: MaxAnnAmt_lbsacre and MaxAnnNumApps are required", rec.Descriptor)
	}
	if !rec.Rates[0].Exists() {
		return fmt.Errorf("%s: Rate1_MaxAppRate_lbsacre is required", rec.Descriptor)
	}
	for i := range rec.Rates {
		t := &rec.Rates[i]
		hasMRI := t.PreEmergenceMRI != nil || t.PostEmergenceMRI != nil
		hasInfo := t.Exists() || !t.MaxNumApps.IsUnlimited() || t.Instruction != ""
		if hasInfo && !hasMRI {
			return fmt.Errorf("%s: rate %d has label info but no MRI", rec.Descriptor, i+1)
		}
		if hasMRI && !t.Exists() {
			return fmt.Errorf("%s: rate %d has an MRI but no max application rate", rec.Descriptor, i+1)
		}
		if t.Instruction != "" &&
			!anchorInstructionRe.MatchString(t.Instruction) &&
			!rangeInstructionRe.MatchString(t.Instruction) {
			return fmt.Errorf("%s: rate %d instruction %q is malformed", rec.Descriptor, i+1, t.Instruction)
		}
	}
	return nil
}

// rowParser accumulates the first cell-level error while extracting typed
// values. Missing columns and blank cells read as absent.
type rowParser struct {
	row []string
	col map[string]int
	err error
}

func (p *rowParser) cell(name string) (string, bool) {
	i, ok := p.col[name]
	if !ok || i >= len(p.row) {
		return "", false
	}
	s := strings.TrimSpace(p.row[i])
	return s, s != ""
}

func (p *rowParser) fail(name, s string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("column %s: bad value %q: %v", name, s, err)
	}
}

func (p *rowParser) text(name string) string {
	s, _ := p.cell(name)
	return s
}

func (p *rowParser) intOr(name string, def int) int {
	s, ok := p.cell(name)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		p.fail(name, s, err)
		return def
	}
	return n
}

func (p *rowParser) intPtr(name string) *int {
	s, ok := p.cell(name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		p.fail(name, s, err)
		return nil
	}
	return &n
}

func (p *rowParser) limit(name string) Limit {
	s, ok := p.cell(name)
	if !ok {
		return NoLimit()
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		p.fail(name, s, err)
		return NoLimit()
	}
	return LimitOf(n)
}

func (p *rowParser) cap(name string) Cap {
	d := p.amount(name)
	if d == nil {
		return Unlimited()
	}
	return CapAmount(*d)
}

func (p *rowParser) amount(name string) *decimal.Decimal {
	s, ok := p.cell(name)
	if !ok {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		p.fail(name, s, err)
		return nil
	}
	return &d
}
