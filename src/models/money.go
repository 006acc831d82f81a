package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fractional digits kept for every amount.
const MoneyPlaces = 2

// Money is an exact decimal amount rendered with two fractional digits.
type Money struct {
	decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money {
	return Money{d}
}

// MustMoney parses s and panics on failure. Meant for constants and tests.
func MustMoney(s string) Money {
	return Money{decimal.RequireFromString(s)}
}

// MoneyFromCents builds an amount from integer minor units.
func MoneyFromCents(cents int64) Money {
	return Money{decimal.New(cents, -MoneyPlaces)}
}

// Cents returns the amount in integer minor units. Amounts are validated to
// two fractional digits before they reach storage, so nothing is rounded away.
func (m Money) Cents() int64 {
	return m.Shift(MoneyPlaces).Round(0).IntPart()
}

func (m Money) String() string {
	return m.StringFixed(MoneyPlaces)
}

// Equal compares numerically, so "5000" equals "5000.00".
func (m Money) Equal(other Money) bool {
	return m.Decimal.Equal(other.Decimal)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	d, err := decimal.NewFromString(strings.Trim(string(b), `"`))
	if err != nil {
		return fmt.Errorf("invalid money amount %s: %w", b, err)
	}
	m.Decimal = d
	return nil
}
