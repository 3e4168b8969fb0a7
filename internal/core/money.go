// Package core provides money parsing and formatting utilities.
//
// Amounts are kept as integer cents. Decimal input is parsed with
// shopspring/decimal and display strings use the pt-BR number format.
package core

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Money is an amount in cents.
type Money struct {
	Cents int64
}

var (
	hundred  = decimal.NewFromInt(100)
	brPrintr = message.NewPrinter(language.BrazilianPortuguese)
)

// Cents is shorthand for Money{Cents: c}.
func Cents(c int64) Money {
	return Money{Cents: c}
}

// ParseMoney converts a decimal string to cents, rounding half away from
// zero. Both "12.34" and "12,34" are accepted; a string that carries both
// separators is read as pt-BR ("1.234,56").
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return FromDecimal(d), nil
}

// FromDecimal converts a decimal amount to cents.
func FromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Mul(hundred).Round(0).IntPart()}
}

// Decimal returns the amount as a decimal number of reais.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float returns the amount in reais for display purposes only.
func (m Money) Float() float64 {
	return m.Decimal().InexactFloat64()
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Times multiplies by a group sign.
func (m Money) Times(sign int64) Money {
	return Money{Cents: m.Cents * sign}
}

func (m Money) IsZero() bool {
	return m.Cents == 0
}

// BRL formats the amount as Brazilian reais, e.g. "R$ 1.234,56" or "-R$ 12,50".
func (m Money) BRL() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	amount := decimal.New(cents, -2).InexactFloat64()
	return sign + "R$ " + brPrintr.Sprint(number.Decimal(amount, number.Scale(2)))
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON writes the amount as a plain JSON number of reais.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string. Anything else,
// including null, booleans and non-numeric strings, reads as zero.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*m = MoneyFromAny(raw)
	return nil
}

// MoneyFromAny coerces a loosely typed value to cents. Non-numeric input
// yields zero.
func MoneyFromAny(v any) Money {
	switch x := v.(type) {
	case json.Number:
		if d, err := decimal.NewFromString(x.String()); err == nil {
			return FromDecimal(d)
		}
	case float64:
		return FromDecimal(decimal.NewFromFloat(x))
	case int64:
		return FromDecimal(decimal.NewFromInt(x))
	case int:
		return FromDecimal(decimal.NewFromInt(int64(x)))
	case string:
		if money, err := ParseMoney(x); err == nil {
			return money
		}
	}
	return Money{}
}
