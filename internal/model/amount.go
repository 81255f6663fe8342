package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a signed decimal amount. Negative values are expenses,
// positive values are income.
type Amount float64

// ParseAmount parses a user-entered amount string into an Amount.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("amount is empty")
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}

	return Amount(value), nil
}

// IsExpense reports whether the amount represents money out.
func (a Amount) IsExpense() bool {
	return a < 0
}

// Abs returns the magnitude of the amount.
func (a Amount) Abs() float64 {
	return math.Abs(float64(a))
}

// String formats the amount with two decimal places, the same precision
// the remote authority stores.
func (a Amount) String() string {
	return strconv.FormatFloat(float64(a), 'f', 2, 64)
}

// UnmarshalJSON accepts both a JSON number and a quoted decimal string.
// The API serializes decimal fields as strings.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*a = 0
		return nil
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("failed to parse amount %s: %w", string(data), err)
	}

	*a = Amount(value)
	return nil
}

// MarshalJSON emits the amount as a quoted decimal string, matching what
// the API expects for decimal fields.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}
