package label

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// INSTRUCTION WINDOW - Parsed date-instruction restriction
// =============================================================================
// A rate tier may carry an instruction code restricting when it applies:
//
//   Y_E-30        only within the period (anchor-relative span)
//   N_H+14        only outside the period
//   Y_E-30>E+10   anchored range
//   N_0501>0915   fixed calendar range (MMDD)
//
// Anchors are E (emergence) or H (harvest) with a signed day offset. A
// single-anchor period spans between the anchor and its offset date:
// E-30 means [E-30, E], H+14 means [H, H+14]. Ranges whose folded start
// falls on or after their end wrap across the year boundary.

// Window is a resolved instruction: a date range plus polarity. Inside
// means the date must fall within the range; otherwise it must fall
// outside. A nil *Window admits every date.
type Window struct {
	Start  Day
	End    Day
	Inside bool
}

// Admits reports whether the window allows an application on d.
func (w *Window) Admits(d Day) bool {
	if w == nil {
		return true
	}
	return w.contains(d) == w.Inside
}

func (w *Window) contains(d Day) bool {
	if w.Start.AfterOrEqual(w.End) {
		// Wrapped range: [Jan 1, End] union [Start, Dec 31].
		return d.BeforeOrEqual(w.End) || d.AfterOrEqual(w.Start)
	}
	return d.AfterOrEqual(w.Start) && d.BeforeOrEqual(w.End)
}

func (w *Window) String() string {
	if w == nil {
		return "any"
	}
	polarity := "outside"
	if w.Inside {
		polarity = "inside"
	}
	return fmt.Sprintf("%s [%s, %s]", polarity, w.Start.MonthDay(), w.End.MonthDay())
}

// ParseInstruction resolves an instruction code against the scenario
// emergence and harvest dates. An empty code yields a nil window.
func ParseInstruction(code string, emergence, harvest Day) (*Window, error) {
	if code == "" {
		return nil, nil
	}

	polarity, period, ok := strings.Cut(code, "_")
	if !ok {
		return nil, fmt.Errorf("instruction %q: missing '_' separator", code)
	}

	var inside bool
	switch polarity {
	case "Y":
		inside = true
	case "N":
		inside = false
	default:
		return nil, fmt.Errorf("instruction %q: polarity must be Y or N", code)
	}

	var start, end Day
	if from, to, ranged := strings.Cut(period, ">"); ranged {
		var err error
		start, err = resolveBound(from, emergence, harvest)
		if err != nil {
			return nil, fmt.Errorf("instruction %q: %w", code, err)
		}
		end, err = resolveBound(to, emergence, harvest)
		if err != nil {
			return nil, fmt.Errorf("instruction %q: %w", code, err)
		}
	} else {
		var err error
		start, end, err = resolveSpan(period, emergence, harvest)
		if err != nil {
			return nil, fmt.Errorf("instruction %q: %w", code, err)
		}
	}

	return &Window{Start: start, End: end, Inside: inside}, nil
}

// resolveBound resolves one side of a range: either an anchored offset or
// a fixed MMDD calendar date.
func resolveBound(s string, emergence, harvest Day) (Day, error) {
	if len(s) > 0 && (s[0] == 'E' || s[0] == 'H') {
		return resolveAnchor(s, emergence, harvest)
	}
	if len(s) != 4 {
		return Day{}, fmt.Errorf("bound %q: want MMDD or anchor±days", s)
	}
	month, err := strconv.Atoi(s[:2])
	if err != nil || month < 1 || month > 12 {
		return Day{}, fmt.Errorf("bound %q: bad month", s)
	}
	day, err := strconv.Atoi(s[2:])
	if err != nil || day < 1 || day > DaysInMonth(time.Month(month)) {
		return Day{}, fmt.Errorf("bound %q: bad day", s)
	}
	return NewDay(time.Month(month), day), nil
}

// resolveSpan resolves a single-anchor period into the span between the
// anchor date and its offset date: a '-' offset runs up to the anchor,
// a '+' offset runs from it.
func resolveSpan(s string, emergence, harvest Day) (Day, Day, error) {
	base, sign, days, err := splitAnchor(s)
	if err != nil {
		return Day{}, Day{}, err
	}
	anchor := pickAnchor(base, emergence, harvest)
	offset := anchor.AddDays(sign * days).InReferenceYear()
	if sign < 0 {
		return offset, anchor, nil
	}
	return anchor, offset, nil
}

// resolveAnchor resolves an E/H anchor with a signed offset, folding the
// result back into the reference year.
func resolveAnchor(s string, emergence, harvest Day) (Day, error) {
	base, sign, days, err := splitAnchor(s)
	if err != nil {
		return Day{}, err
	}
	return pickAnchor(base, emergence, harvest).AddDays(sign * days).InReferenceYear(), nil
}

func pickAnchor(base byte, emergence, harvest Day) Day {
	if base == 'E' {
		return emergence
	}
	return harvest
}

func splitAnchor(s string) (base byte, sign, days int, err error) {
	if len(s) < 3 {
		return 0, 0, 0, fmt.Errorf("anchor %q: want <E|H><+|-><days>", s)
	}
	base = s[0]
	if base != 'E' && base != 'H' {
		return 0, 0, 0, fmt.Errorf("anchor %q: must start with E or H", s)
	}
	switch s[1] {
	case '+':
		sign = 1
	case '-':
		sign = -1
	default:
		return 0, 0, 0, fmt.Errorf("anchor %q: missing sign", s)
	}
	days, err = strconv.Atoi(s[2:])
	if err != nil || days < 0 {
		return 0, 0, 0, fmt.Errorf("anchor %q: bad day offset", s)
	}
	return base, sign, days, nil
}
