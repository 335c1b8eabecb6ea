package normalization

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Text lowercases, trims, and strips diacritics: "  Concluída " -> "concluida".
func Text(input string) string {
	return strings.ToLower(strings.TrimSpace(stripMarks(input)))
}

// Key folds input to lowercase ASCII letters and digits only, so that
// "Unidade de Atendimento", "unidade_de_atendimento" and "UnidadeDeAtendimento"
// all compare equal.
func Key(input string) string {
	s := Text(input)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Words splits normalized text on anything that is not a letter or digit.
func Words(input string) []string {
	return strings.FieldsFunc(Text(input), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// stripMarks builds a fresh transformer per call; transform chains keep
// internal state and cannot be shared across goroutines.
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
