package ledger

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a signed fixed-scale decimal at 2 decimal places (öre). All
// arithmetic is exact; callers never see a float. The zero value is 0.00.
type Money struct {
	d decimal.Decimal
}

// Zero is the additive identity.
func Zero() Money { return Money{} }

// FromOre builds a Money from a whole number of öre (1/100 krona).
func FromOre(ore int64) Money {
	return Money{d: decimal.New(ore, -2)}
}

// ParseMoney parses a SIE-style amount: ',' or '.' decimal separator,
// optional embedded whitespace in the integer part, optional leading sign.
func ParseMoney(s string) (Money, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', ' ', '\t':
			return -1
		case ',':
			return '.'
		default:
			return r
		}
	}, strings.TrimSpace(s))
	if clean == "" {
		return Zero(), fmt.Errorf("ledger: empty amount")
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return Zero(), fmt.Errorf("ledger: invalid amount %q: %w", s, err)
	}
	return Money{d: d.Round(2)}, nil
}

// Ore returns the exact number of öre represented.
func (m Money) Ore() int64 {
	return m.d.Shift(2).Round(0).IntPart()
}

// String renders with '.' as decimal separator and 2 decimals, per the
// SIE4 emission rules.
func (m Money) String() string {
	return m.d.Round(2).StringFixed(2)
}

func (m Money) Add(other Money) Money { return Money{d: m.d.Add(other.d)} }
func (m Money) Sub(other Money) Money { return Money{d: m.d.Sub(other.d)} }
func (m Money) Neg() Money             { return Money{d: m.d.Neg()} }
func (m Money) Abs() Money             { return Money{d: m.d.Abs()} }
func (m Money) IsZero() bool           { return m.d.IsZero() }
func (m Money) IsNegative() bool       { return m.d.IsNegative() }
func (m Money) IsPositive() bool       { return m.d.IsPositive() }
func (m Money) Cmp(other Money) int    { return m.d.Cmp(other.d) }
func (m Money) Equal(other Money) bool { return m.d.Equal(other.d) }

// Max returns the larger of two amounts.
func Max(a, b Money) Money {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

// MaxZero clamps a signed amount at zero, used to project a signed balance
// onto the debit or credit column of a trial balance.
func MaxZero(a Money) Money {
	return Max(a, Zero())
}

// MulInt scales by a whole-number factor; exact, never rounds.
func (m Money) MulInt(n int) Money {
	return Money{d: m.d.Mul(decimal.NewFromInt(int64(n)))}
}

// DivRound divides by n with round-half-to-even at 2 decimal places. Used
// only for periodisation (accrual/depreciation); the caller is responsible
// for having the last period absorb the residual so the sum stays exact.
// decimal.Decimal.DivRound rounds half away from zero, not half-to-even, so
// the division is done at extra precision and finished with RoundBank.
func (m Money) DivRound(n int) Money {
	if n <= 0 {
		return Zero()
	}
	q := m.d.DivRound(decimal.NewFromInt(int64(n)), 8)
	return Money{d: q.RoundBank(2)}
}

// SplitEven splits total into n parts: the first n-1 equal round2(total/n),
// the last absorbs whatever residual remains so the parts sum exactly to
// total (§4.6, §8 property 6).
func SplitEven(total Money, n int) []Money {
	if n <= 0 {
		return nil
	}
	per := total.DivRound(n)
	parts := make([]Money, n)
	sum := Zero()
	for i := 0; i < n-1; i++ {
		parts[i] = per
		sum = sum.Add(per)
	}
	parts[n-1] = total.Sub(sum)
	return parts
}

// Percentage computes round2(total * rate / 100), rate in [0,100].
func Percentage(total Money, rate decimal.Decimal) Money {
	hundred := decimal.NewFromInt(100)
	return Money{d: total.d.Mul(rate).DivRound(hundred, 2)}
}

// MulRate computes round2(total * rate), rate expressed as a fraction
// (0.206, not 20.6), used by the tax aggregators.
func (m Money) MulRate(rate decimal.Decimal) Money {
	return Money{d: m.d.Mul(rate).Round(2)}
}

// Value implements database/sql/driver.Valuer for callers that persist
// Money via a SQL-backed collaborator; the kernel itself never needs this
// (bbolt storage marshals through MarshalJSON below).
func (m Money) Value() (driver.Value, error) { return m.String(), nil }

// MarshalJSON renders Money as a JSON string so the öre value is never
// subject to float round-tripping through encoding/json.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.d.Round(2).StringFixed(2) + `"`), nil
}

// UnmarshalJSON parses the string form written by MarshalJSON.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
