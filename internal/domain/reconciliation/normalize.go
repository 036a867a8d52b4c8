package reconciliation

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legalSuffixes are corporate-form markers dropped as whole words during
// normalization, so "Companhia ABC LTDA" and "ABC" compare cleanly.
var legalSuffixes = map[string]struct{}{
	"ltda":   {},
	"eireli": {},
	"me":     {},
	"epp":    {},
	"s/a":    {},
	"sa":     {},
}

var diacriticStripper = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// NormalizeName canonicalizes a free-text entity name for comparison:
// lower-case, diacritics stripped, legal-entity suffixes removed as whole
// words, punctuation flattened to spaces, whitespace collapsed. Degenerate
// input yields an empty string, never an error.
func NormalizeName(raw string) string {
	s := strings.ToLower(raw)

	if stripped, _, err := transform.String(diacriticStripper, s); err == nil {
		s = stripped
	}

	// suffix removal happens before punctuation flattening so "s/a"
	// is still a single token here
	fields := strings.Fields(s)
	kept := fields[:0]
	for _, w := range fields {
		if _, isSuffix := legalSuffixes[w]; isSuffix {
			continue
		}
		kept = append(kept, w)
	}
	s = strings.Join(kept, " ")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
