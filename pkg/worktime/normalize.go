package worktime

import (
	"math"
	"strconv"
	"strings"
)

// ParsedMoney is the amount and currency marker read from one matched price.
type ParsedMoney struct {
	Amount float64
	Symbol string // canonical marker, empty when none was found
}

// Normalize strips the currency marker from a matched price and resolves which
// of '.' and ',' is the decimal point. It returns a numeric string using '.' as
// the decimal point and the first marker found in raw (empty if none).
//
// When stripSpaces is false, internal whitespace is kept and the amount ends at
// the first space, which is how the space-less variant of the pattern behaves.
func Normalize(raw string, stripSpaces bool) (numeric string, marker string) {
	marker = markerRe.FindString(raw)
	cleaned := markerRe.ReplaceAllString(raw, "")
	cleaned = strings.TrimFunc(cleaned, isSpace)
	if stripSpaces {
		cleaned = spacesRe.ReplaceAllString(cleaned, "")
	}

	hasDot := strings.Contains(cleaned, ".")
	hasComma := strings.Contains(cleaned, ",")
	switch {
	case hasDot && hasComma:
		if strings.LastIndex(cleaned, ".") > strings.LastIndex(cleaned, ",") {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		}
	case hasComma:
		if strings.Count(cleaned, ",") > 1 || strings.HasSuffix(cleaned, ",") {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		}
	case hasDot:
		dot := strings.Index(cleaned, ".")
		// A single dot followed by three or more digits groups thousands.
		if strings.Count(cleaned, ".") > 1 || strings.HasSuffix(cleaned, ".") || len(cleaned[dot+1:]) > 2 {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
		}
	}
	return cleaned, marker
}

// ParseMoney normalizes raw and parses the leading decimal number of the
// result. An unparsable amount yields NaN rather than an error so that one
// malformed price never prevents the others in a text from being converted.
func ParseMoney(raw string, stripSpaces bool) ParsedMoney {
	numeric, marker := Normalize(raw, stripSpaces)
	return ParsedMoney{
		Amount: parseLeadingFloat(numeric),
		Symbol: CanonicalSymbol(marker),
	}
}

// parseLeadingFloat parses the longest prefix of s that forms a decimal number
// (optional sign, digits, optional fraction), ignoring leading whitespace.
// It returns NaN when s does not start with a number.
func parseLeadingFloat(s string) float64 {
	s = strings.TrimLeftFunc(s, isSpace)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
		digits++
	}
	if end < len(s) && s[end] == '.' {
		frac := end + 1
		for frac < len(s) && s[frac] >= '0' && s[frac] <= '9' {
			frac++
		}
		if digits > 0 || frac > end+1 {
			digits += frac - end - 1
			end = frac
		}
	}
	if digits == 0 {
		return math.NaN()
	}
	// Only range errors are possible here, and v is then ±Inf as in ECMAScript.
	v, _ := strconv.ParseFloat(s[:end], 64)
	return v
}
