package worktime

import (
	"iter"
	"regexp"
	"strings"
	"unicode/utf8"
)

// spaceClass is the body of a character class matching the same characters
// as the ECMAScript \s escape: ASCII whitespace plus the Unicode space
// separators, line/paragraph separators and the byte order mark. Prices copied
// from web pages routinely use NBSP or narrow NBSP as a thousands separator.
const spaceClass = `\t\n\v\f\r \x{00a0}\x{1680}\x{2000}-\x{200a}\x{2028}\x{2029}\x{202f}\x{205f}\x{3000}\x{feff}`

// markerPattern is the single definition of a currency marker. Matching,
// marker extraction and marker stripping all use it.
const markerPattern = `[£€$¥₹₽]|Rs\.?`

// numberPattern is a digit group: either one to three digits followed by
// three-digit groups separated by '.', ',' or a whitespace character, or a
// plain run of digits; both optionally followed by a fractional suffix.
const numberPattern = `(?:\d{1,3}(?:[,.` + spaceClass + `]\d{3})*|\d+)(?:[.,]\d{0,2})?`

// pricePattern is the body of a price: marker before or after the number.
const pricePattern = `(?:` + markerPattern + `)[` + spaceClass + `]*` + numberPattern +
	`|` + numberPattern + `[` + spaceClass + `]*(?:` + markerPattern + `)`

var (
	// anchoredPrice matches a price at the very start of its input and requires
	// it to be followed by whitespace or the end of input. Group 1 is the price.
	anchoredPrice = regexp.MustCompile(`^(` + pricePattern + `)(?:[` + spaceClass + `]|$)`)

	markerRe = regexp.MustCompile(markerPattern)
	spacesRe = regexp.MustCompile(`[` + spaceClass + `]+`)
)

// isSpace reports whether r belongs to spaceClass.
func isSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ',
		0x00a0, 0x1680, 0x2028, 0x2029, 0x202f, 0x205f, 0x3000, 0xfeff:
		return true
	}
	return r >= 0x2000 && r <= 0x200a
}

// Match is one price-shaped substring of a text.
type Match struct {
	Start int // byte offset of the first byte
	End   int // byte offset just past the last byte
	Text  string
}

// Matcher finds price-shaped substrings. The zero value is not usable, use
// NewMatcher. A Matcher holds no mutable state and is safe for concurrent use.
type Matcher struct {
	re *regexp.Regexp
}

// NewMatcher returns a Matcher for the built-in price pattern.
func NewMatcher() *Matcher {
	return &Matcher{re: anchoredPrice}
}

// Matches returns the non-overlapping matches in text, leftmost first. The
// sequence is computed lazily and can be ranged over any number of times.
func (m *Matcher) Matches(text string) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		if !markerRe.MatchString(text) {
			return
		}
		i := 0
		for i < len(text) {
			if i > 0 {
				prev, _ := utf8.DecodeLastRuneInString(text[:i])
				if !isSpace(prev) {
					_, size := utf8.DecodeRuneInString(text[i:])
					i += size
					continue
				}
			}
			loc := m.re.FindStringSubmatchIndex(text[i:])
			if loc == nil {
				_, size := utf8.DecodeRuneInString(text[i:])
				i += size
				continue
			}
			match := Match{Start: i + loc[2], End: i + loc[3]}
			match.Text = text[match.Start:match.End]
			if !yield(match) {
				return
			}
			i = match.End
		}
	}
}

// HasMatch reports whether text contains at least one price.
func (m *Matcher) HasMatch(text string) bool {
	for range m.Matches(text) {
		return true
	}
	return false
}

// ReplaceAll returns a copy of text with every match replaced by the result of
// repl, and the number of matches replaced.
func (m *Matcher) ReplaceAll(text string, repl func(Match) string) (string, int) {
	var b strings.Builder
	last, count := 0, 0
	for match := range m.Matches(text) {
		if count == 0 {
			b.Grow(len(text))
		}
		b.WriteString(text[last:match.Start])
		b.WriteString(repl(match))
		last = match.End
		count++
	}
	if count == 0 {
		return text, 0
	}
	b.WriteString(text[last:])
	return b.String(), count
}
