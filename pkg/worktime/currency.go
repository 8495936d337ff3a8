package worktime

import (
	"maps"
	"strings"
)

// ConversionTable maps a canonical currency marker to the rate that converts
// one unit of it into the reference currency.
type ConversionTable map[string]float64

// DefaultRates returns a fresh copy of the built-in table. The reference
// currency is the euro.
func DefaultRates() ConversionTable {
	return ConversionTable{
		"£":  0.85,
		"€":  1,
		"$":  0.90,
		"¥":  0.008,
		"₹":  0.011,
		"₽":  0.011,
		"Rs": 0.011,
	}
}

// CanonicalSymbol maps a marker spelling onto its table key: "Rs." and "rs"
// become "Rs", other symbols are returned trimmed.
func CanonicalSymbol(s string) string {
	s = strings.TrimSuffix(strings.TrimSpace(s), ".")
	if strings.EqualFold(s, "rs") {
		return "Rs"
	}
	return s
}

// Convert returns amount expressed in the reference currency. Unknown or empty
// symbols use a rate of 1.
func (t ConversionTable) Convert(amount float64, symbol string) float64 {
	if rate, ok := t[symbol]; ok {
		return amount * rate
	}
	return amount
}

// Clone returns a copy of t that can be handed to an Engine without sharing.
func (t ConversionTable) Clone() ConversionTable {
	return maps.Clone(t)
}
