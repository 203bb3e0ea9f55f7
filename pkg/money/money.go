// Package money represents BRL amounts as integer centavos so that revenue
// splits are exact. JSON encodes amounts as decimal numbers with two places
// (e.g. 100.00), matching what the payment gateway and the front-end expect.
package money

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Cents is a monetary amount in centavos (1/100 BRL).
type Cents int64

// FromReais converts a whole-real amount to Cents.
func FromReais(reais int64) Cents {
	return Cents(reais * 100)
}

// Reais returns the amount as a float, for display only.
func (c Cents) Reais() float64 {
	return float64(c) / 100
}

func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON encodes the amount as a decimal number with two places.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (c *Cents) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Parse converts a decimal string ("100", "100.5", "100.50") to Cents.
func Parse(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	var f int64
	switch len(frac) {
	case 0:
	case 1:
		f, err = strconv.ParseInt(frac, 10, 64)
		f *= 10
	case 2:
		f, err = strconv.ParseInt(frac, 10, 64)
	default:
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	v := w*100 + f
	if neg {
		v = -v
	}
	return Cents(v), nil
}

// FromFloat converts a float amount in reais to Cents, rounding half to even.
func FromFloat(v float64) Cents {
	return Cents(int64(math.RoundToEven(v * 100)))
}

// Split divides the amount between a professional holding percent (0..100)
// and the clinic. The professional's share is rounded half to even; the
// clinic receives the exact remainder, so the two always sum to c.
func (c Cents) Split(percent int) (professional, clinic Cents) {
	professional = roundHalfEven(int64(c)*int64(percent), 100)
	clinic = c - professional
	return professional, clinic
}

// Percent returns percent% of the amount, rounded half to even.
func (c Cents) Percent(percent int) Cents {
	return roundHalfEven(int64(c)*int64(percent), 100)
}

// roundHalfEven divides num by den rounding half to even (banker's rounding).
// den must be positive.
func roundHalfEven(num, den int64) Cents {
	q := num / den
	r := num % den
	if r < 0 {
		r = -r
	}
	double := r * 2
	switch {
	case double < den:
		// round down, nothing to do
	case double > den:
		if num < 0 {
			q--
		} else {
			q++
		}
	default:
		// exactly half: round to even
		if q%2 != 0 {
			if num < 0 {
				q--
			} else {
				q++
			}
		}
	}
	return Cents(q)
}
