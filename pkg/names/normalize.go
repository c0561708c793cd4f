// Package names provides name normalization and the name-equivalence oracle
// consumed by the fuzzy matcher. Normalization folds case, strips diacritics
// and punctuation, and transliterates Cyrillic so that "Иван" and "Ivan"
// normalize to the same string. Equivalence additionally consults
// user-supplied variant dictionaries for nicknames and diminutives.
package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// cyrillic maps Cyrillic letters to a plain Latin transliteration.
// Lowercase only; input is case-folded before transliteration.
var cyrillic = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "i", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "shch",
	'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
	'і': "i", 'ї': "yi", 'є': "ye", 'ґ': "g",
}

// stripMarks builds the transformer that removes combining marks after NFD
// decomposition, dropping diacritics ("é" -> "e"). Chained transformers are
// stateful, so each call gets its own; construction is cheap.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Normalize derives the canonical comparison form of a raw name: lowercase,
// no diacritics, no punctuation, Cyrillic transliterated, whitespace
// collapsed to single spaces. Normalized fields on person records must be
// recomputed with this function whenever a raw name changes.
func Normalize(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if lowered == "" {
		return ""
	}

	stripped, _, err := transform.String(stripMarks(), lowered)
	if err != nil {
		stripped = lowered
	}

	var b strings.Builder
	b.Grow(len(stripped))
	lastSpace := true
	for _, r := range stripped {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if lat, ok := cyrillic[r]; ok {
				b.WriteString(lat)
			} else {
				b.WriteRune(r)
			}
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		default:
			// Punctuation is dropped entirely ("O'Brien" -> "obrien").
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// NormalizeID canonicalizes an external profile identifier so that textual
// encodings of the same id compare equal: case-insensitive, with separators
// and surrounding decoration removed ("RFN: 0012-34" == "rfn001234").
func NormalizeID(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	s := b.String()
	s = strings.TrimPrefix(s, "rfn")
	return strings.TrimLeft(s, "0")
}
