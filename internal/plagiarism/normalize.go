package plagiarism

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// minTokenLength is the shortest token (exclusive) kept by the normalizer.
// Dropping very short words filters articles and prepositions without
// maintaining a stop-word list.
const minTokenLength = 3

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize turns raw text into an unordered set of comparable word tokens:
// lowercased, diacritics stripped, punctuation removed, split on whitespace,
// tokens of length <= 3 discarded. Pure and deterministic.
func Normalize(text string) map[string]struct{} {
	lowered := strings.ToLower(text)

	folded, _, err := transform.String(stripMarks, lowered)
	if err != nil {
		// Malformed input is normalized as-is rather than rejected.
		folded = lowered
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	tokens := make(map[string]struct{})
	for _, word := range strings.Fields(b.String()) {
		if len([]rune(word)) > minTokenLength {
			tokens[word] = struct{}{}
		}
	}

	return tokens
}
