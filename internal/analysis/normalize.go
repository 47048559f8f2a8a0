package analysis

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize folds subject and content into one lower-cased, whitespace-collapsed
// string for keyword matching. Compatibility characters (full-width letters,
// ligatures, non-breaking spaces) are folded to their plain forms first.
func Normalize(subject, content string) string {
	text := norm.NFKC.String(subject + " " + content)
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
