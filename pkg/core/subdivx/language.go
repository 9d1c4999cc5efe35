package subdivx

import (
	"strings"

	"golang.org/x/text/language"
)

// Languages the site carries.
var (
	LatinAmericanSpanish = language.MustParse("es-MX")
	Spanish              = language.Spanish
	English              = language.English
)

// Keyword lists are matched as literal substrings. Some entries are
// mixed-case and only ever match the case-sensitive dialect check.
var (
	latinoReferences = []string{
		"neutro", "Neutro", "NEUTRO", "latino", "Latino", "LATINO", "Latinoamérica",
		"latinoamérica", "latinizado", "latina", "Latina", "neutral",
	}
	nonLatinoReferences  = []string{"españa", "iberico", "ibérico", "castellano"}
	nonSpanishReferences = []string{"ingles", "inglés", "francés", "frances", "portugues", "portugués"}

	trustedLatinoUploaders = []string{"TaMaBin", "oraldo", "enanodog", "antillan0", "gozilla2", "axel7902"}
)

// InferLanguage classifies a listing from its description. The first
// matching category wins; anything unrecognized is Latin American Spanish.
// French and Portuguese mentions fall into the English bucket.
func InferLanguage(description, uploader string) language.Tag {
	lower := strings.ToLower(description)
	switch {
	case containsAny(lower, latinoReferences):
		return LatinAmericanSpanish
	case containsAny(lower, nonLatinoReferences):
		return Spanish
	case containsAny(lower, nonSpanishReferences):
		return English
	default:
		return LatinAmericanSpanish
	}
}

// isLatinoFriendly is the dialect tie-break test: a trusted uploader or a
// case-sensitive dialect keyword in the description.
func isLatinoFriendly(description, uploader string) bool {
	for _, u := range trustedLatinoUploaders {
		if uploader == u {
			return true
		}
	}
	return containsAny(description, latinoReferences)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
