// Package currency defines exchange currency codes and display metadata.
package currency

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Code identifies a currency on an exchange (e.g. "BTC"). Two currencies are
// the same currency when their codes are equal.
type Code string

// Parse normalizes a raw symbol into a Code.
func Parse(s string) Code {
	return Code(strings.ToUpper(strings.TrimSpace(s)))
}

// String returns the code.
func (c Code) String() string {
	return string(c)
}

// IsZero reports whether the code is empty.
func (c Code) IsZero() bool {
	return c == ""
}

// Currency holds display metadata for a code.
type Currency struct {
	Code     Code
	Name     string
	Decimals int32
}

// Registry maps codes to display metadata.
type Registry struct {
	byCode   map[Code]Currency
	fallback int32
}

// NewRegistry creates an empty registry. Codes without metadata render with
// eight decimals.
func NewRegistry() *Registry {
	return &Registry{
		byCode:   make(map[Code]Currency),
		fallback: 8,
	}
}

// Register adds or replaces metadata.
func (r *Registry) Register(c Currency) {
	r.byCode[c.Code] = c
}

// Lookup returns the metadata for code.
func (r *Registry) Lookup(code Code) (Currency, bool) {
	c, ok := r.byCode[code]
	return c, ok
}

// Decimals returns the display precision for code.
func (r *Registry) Decimals(code Code) int32 {
	if c, ok := r.byCode[code]; ok {
		return c.Decimals
	}
	return r.fallback
}

// Format renders amount with the precision of code, e.g. "0.12345678 BTC".
func (r *Registry) Format(code Code, amount decimal.Decimal) string {
	return amount.StringFixed(r.Decimals(code)) + " " + code.String()
}
