package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldChain = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// đ/Đ do not decompose under NFD, so they are replaced explicitly.
var foldReplacer = strings.NewReplacer("đ", "d", "Đ", "D")

// Fold lowercases the value, strips diacritics, and collapses whitespace so
// brand and city names match regardless of accenting: "Hà Nội", "ha  noi",
// and "HA NOI" all fold to "ha noi".
func Fold(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	folded, _, err := transform.String(foldChain, foldReplacer.Replace(value))
	if err != nil {
		folded = value
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// FoldEqual reports whether two values fold to the same key.
func FoldEqual(a, b string) bool {
	return Fold(a) == Fold(b)
}
