package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titler = cases.Title(language.Und)

// Label turns a snake_case key into a title-cased label:
// "zero_variance" becomes "Zero Variance".
func Label(key string) string {
	key = strings.TrimSpace(strings.ReplaceAll(key, "_", " "))
	if key == "" {
		return ""
	}
	return titler.String(strings.Join(strings.Fields(key), " "))
}
