// Package locale answers questions about the language a deployment teaches.
package locale

import "strings"

// spaceless lists languages written without spaces between words.
var spaceless = map[string]bool{
	"ja": true,
	"zh": true,
	"th": true,
	"lo": true,
	"km": true,
	"my": true,
}

// Language returns the lowercased language subtag of a locale such as
// "ja-JP" or "en_US".
func Language(location string) string {
	lang, _, _ := strings.Cut(location, "-")
	lang, _, _ = strings.Cut(lang, "_")
	return strings.ToLower(strings.TrimSpace(lang))
}

// Spaceless reports whether text in location has no spaces between words,
// so phrases need segmentation before they can be split into tokens.
func Spaceless(location string) bool {
	return spaceless[Language(location)]
}

// Separator is the string words are joined with in location.
func Separator(location string) string {
	if Spaceless(location) {
		return ""
	}
	return " "
}
