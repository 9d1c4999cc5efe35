package metadata

import (
	"strings"

	"github.com/mozillazg/go-unidecode"
)

var (
	spaceReplacer = strings.NewReplacer("-", " ", ":", " ", "(", " ", ")", " ", ".", " ", ",", " ")
	dropReplacer  = strings.NewReplacer("'", "", "’", "")
)

// Sanitize normalizes a title for equality checks: ASCII folding,
// separators to spaces, apostrophes dropped, single spaces, lower case.
func Sanitize(value string) string {
	if value == "" {
		return ""
	}
	s := unidecode.Unidecode(value)
	s = spaceReplacer.Replace(s)
	s = dropReplacer.Replace(s)
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
