package review

import (
	"strings"
	"unicode"
)

// Normalize lowercases s and drops punctuation and symbols so that answers
// differing only in case, punctuation or surrounding space compare equal.
func Normalize(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
	return strings.TrimSpace(s)
}

// CheckAnswer reports whether answer matches expected exactly after
// normalization. An empty answer is never correct.
func CheckAnswer(answer, expected string) bool {
	a := Normalize(answer)
	if a == "" {
		return false
	}
	return a == Normalize(expected)
}
