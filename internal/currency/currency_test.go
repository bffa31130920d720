package currency

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Code
	}{
		{"btc", BTC},
		{" Eth ", ETH},
		{"USDT", USDT},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Parse(tt.in); got != tt.want {
			t.Errorf("Parse(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRegistry_Format(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		code   Code
		amount string
		want   string
	}{
		{USD, "10.4372", "10.44 USD"},
		{BTC, "0.0998", "0.09980000 BTC"},
		{Code("XYZ"), "1", "1.00000000 XYZ"},
	}
	for _, tt := range tests {
		got := r.Format(tt.code, decimal.RequireFromString(tt.amount))
		if got != tt.want {
			t.Errorf("Format(%s, %s) = %q, want %q", tt.code, tt.amount, got, tt.want)
		}
	}
}
