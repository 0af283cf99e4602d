package label

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CAP / LIMIT - Optional constraint values
// =============================================================================
// Unspecified label constraints mean "no restriction". These types make that
// explicit instead of leaning on floating-point infinity: the zero value of
// both Cap and Limit is Unlimited, and all comparisons are defined against
// that state.

// Cap is an optional amount ceiling (mass per area).
type Cap struct {
	limited bool
	value   decimal.Decimal
}

// Unlimited is the absent-cap value. Identical to the zero value; provided
// for readability at construction sites.
func Unlimited() Cap { return Cap{} }

// CapAmount builds a cap from a decimal amount.
func CapAmount(v decimal.Decimal) Cap { return Cap{limited: true, value: v} }

// CapOf builds a cap from a float. Test/config convenience.
func CapOf(v float64) Cap { return CapAmount(decimal.NewFromFloat(v)) }

func (c Cap) IsUnlimited() bool      { return !c.limited }
func (c Cap) Value() decimal.Decimal { return c.value }

// Under reports whether applied is strictly below the cap.
func (c Cap) Under(applied decimal.Decimal) bool {
	return !c.limited || applied.LessThan(c.value)
}

// ReachedBy reports whether applied meets or exceeds the cap.
func (c Cap) ReachedBy(applied decimal.Decimal) bool {
	return c.limited && applied.GreaterThanOrEqual(c.value)
}

// Exceeds reports whether applied is strictly above the cap.
func (c Cap) Exceeds(applied decimal.Decimal) bool {
	return c.limited && applied.GreaterThan(c.value)
}

// Mul scales the cap value (unit conversion). Unlimited stays unlimited.
func (c Cap) Mul(f decimal.Decimal) Cap {
	if !c.limited {
		return c
	}
	return CapAmount(c.value.Mul(f))
}

func (c Cap) String() string {
	if !c.limited {
		return "unlimited"
	}
	return c.value.String()
}

// Limit is an optional application-count ceiling.
type Limit struct {
	limited bool
	n       int
}

// NoLimit is the absent-limit value.
func NoLimit() Limit { return Limit{} }

// LimitOf builds a count limit.
func LimitOf(n int) Limit { return Limit{limited: true, n: n} }

func (l Limit) IsUnlimited() bool { return !l.limited }
func (l Limit) Value() int        { return l.n }

// AllowsAnother reports whether one more application on top of current
// stays within the limit.
func (l Limit) AllowsAnother(current int) bool {
	return !l.limited || current+1 <= l.n
}

// ReachedBy reports whether current meets or exceeds the limit.
func (l Limit) ReachedBy(current int) bool {
	return l.limited && current >= l.n
}

func (l Limit) String() string {
	if !l.limited {
		return "unlimited"
	}
	return strconv.Itoa(l.n)
}
