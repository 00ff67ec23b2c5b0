package dataprocessing

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	upperCaser = cases.Upper(language.Und)
	lowerCaser = cases.Lower(language.Und)
)

// NormalizeWhitespace collapses every whitespace run to a single space and trims the ends.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CapitalizeWords title-cases each whitespace separated word. Words made only of
// digits and upper-case letters (acronyms, "100J") are kept, a leading "(" is
// preserved and the word after it capitalized, and padding inside parentheses
// is removed.
func CapitalizeWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = capitalizeWord(w)
	}
	out := strings.Join(words, " ")
	out = strings.ReplaceAll(out, " ( ", " (")
	return strings.ReplaceAll(out, " )", ")")
}

func capitalizeWord(w string) string {
	if isAcronym(w) {
		return w
	}
	if rest, ok := strings.CutPrefix(w, "("); ok {
		return "(" + CapitalizeWords(rest)
	}
	first, size := utf8.DecodeRuneInString(w)
	return upperCaser.String(string(first)) + lowerCaser.String(w[size:])
}

func isAcronym(w string) bool {
	for _, r := range w {
		if !unicode.IsNumber(r) && !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}
