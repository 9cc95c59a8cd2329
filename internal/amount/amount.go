// Package amount implements the non-negative integer quantities carried on
// the wire as base-10 strings.
//
// Amounts are immutable: arithmetic returns a new Amount and never mutates
// its operands. The zero value is a valid zero amount.
package amount

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// Amount is an arbitrary-precision unsigned integer.
type Amount struct {
	v *apd.BigInt
}

// Zero is the zero amount.
var Zero = Amount{}

// ErrMalformed is returned by Parse for strings that are not base-10 integers.
var ErrMalformed = errors.New("malformed amount")

// Parse reads a signed base-10 integer string.
//
// Signed input is accepted so callers can tell "negative" apart from
// "malformed" and report the matching error; use Sign to reject negatives.
// Leading "+" signs, whitespace, underscores and non-decimal prefixes are
// rejected.
func Parse(s string) (Amount, error) {
	digits := strings.TrimPrefix(s, "-")
	if digits == "" {
		return Amount{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return Amount{}, fmt.Errorf("%w: %q", ErrMalformed, s)
		}
	}
	b, ok := new(apd.BigInt).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	return Amount{v: b}, nil
}

// MustParse is Parse for constants and fixtures. It panics on error.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromInt64 converts n.
func FromInt64(n int64) Amount {
	return Amount{v: apd.NewBigInt(n)}
}

// FromUnits scales a whole-token count by 10^denomination.
// FromUnits(50, 10) is "500000000000".
func FromUnits(whole int64, denomination int) Amount {
	scale := new(apd.BigInt).Exp(apd.NewBigInt(10), apd.NewBigInt(int64(denomination)), nil)
	return Amount{v: new(apd.BigInt).Mul(apd.NewBigInt(whole), scale)}
}

func (a Amount) big() *apd.BigInt {
	if a.v == nil {
		return apd.NewBigInt(0)
	}
	return a.v
}

// Add returns a+b.
func (a Amount) Add(b Amount) Amount {
	return Amount{v: new(apd.BigInt).Add(a.big(), b.big())}
}

// Sub returns a-b. The result may be negative; callers check with Cmp first.
func (a Amount) Sub(b Amount) Amount {
	return Amount{v: new(apd.BigInt).Sub(a.big(), b.big())}
}

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	return a.big().Cmp(b.big())
}

// Sign returns -1, 0 or +1.
func (a Amount) Sign() int {
	return a.big().Sign()
}

// IsZero reports whether a == 0.
func (a Amount) IsZero() bool {
	return a.Sign() == 0
}

// String returns the canonical base-10 form: no leading zeros, no sign for
// non-negative values.
func (a Amount) String() string {
	return a.big().String()
}

// Float64 returns a lossy value scaled down by 10^denomination. It exists
// for dashboards only and must never feed back into ledger arithmetic.
func (a Amount) Float64(denomination int) float64 {
	d := apd.NewWithBigInt(new(apd.BigInt).Set(a.big()), -int32(denomination))
	f, err := d.Float64()
	if err != nil {
		return 0
	}
	return f
}

// MarshalJSON encodes the amount as a JSON string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts a JSON string holding a base-10 integer.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("amount must be a string: %w", err)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Sum adds every amount in xs.
func Sum(xs ...Amount) Amount {
	total := new(apd.BigInt)
	for _, x := range xs {
		total.Add(total, x.big())
	}
	return Amount{v: total}
}
