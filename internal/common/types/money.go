package types

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency represents a validated currency code.
type Currency string

// Supported currency codes
const (
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
)

// ErrInvalidCurrency is returned when parsing an unsupported currency code.
var ErrInvalidCurrency = errors.New("invalid or unsupported currency code")

// ErrNonPositiveAmount is returned when a positive amount is required but not provided.
var ErrNonPositiveAmount = errors.New("amount must be positive")

var validCurrencies = map[Currency]bool{
	CurrencyEUR: true,
	CurrencyUSD: true,
	CurrencyGBP: true,
}

// ParseCurrency validates and parses a currency code string.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(s)
	if !validCurrencies[c] {
		return "", fmt.Errorf("%w: %s", ErrInvalidCurrency, s)
	}
	return c, nil
}

// String returns the string representation of Currency.
func (c Currency) String() string {
	return string(c)
}

// Money represents a monetary amount with currency.
// Uses decimal.Decimal for precise financial calculations.
type Money struct {
	Amount   decimal.Decimal `json:"value"`
	Currency Currency        `json:"currency"`
}

// NewMoney creates a new Money instance.
func NewMoney(amount decimal.Decimal, currency Currency) Money {
	return Money{
		Amount:   amount,
		Currency: currency,
	}
}

// NewPositiveFromString creates Money from a string, validating both the
// decimal format, the currency code and that the amount is positive.
func NewPositiveFromString(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	c, err := ParseCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	if !d.IsPositive() {
		return Money{}, ErrNonPositiveAmount
	}
	return NewMoney(d, c), nil
}

// MustMoney is NewPositiveFromString that panics on invalid input.
// Use only in tests or initialization code where panicking is acceptable.
func MustMoney(amount, currency string) Money {
	m, err := NewPositiveFromString(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// IsPositive returns true if amount > 0.
func (m Money) IsPositive() bool {
	return m.Amount.IsPositive()
}

// IsZero returns true if amount == 0.
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// Equal returns true if both amount and currency match.
func (m Money) Equal(other Money) bool {
	return m.Currency == other.Currency && m.Amount.Equal(other.Amount)
}

// String returns a human-readable representation.
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(2), m.Currency)
}
