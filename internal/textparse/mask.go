package textparse

import (
	"regexp"
	"strings"
)

// hexIDSpaced is a standalone run of five space-separated hex byte pairs
var hexIDSpaced = regexp.MustCompile(`\b[0-9A-Fa-f]{2}(?: [0-9A-Fa-f]{2}){4}\b`)

// underscoreEscape stands in for underscores already present in the input
// while a text is masked. It is one byte wide and not whitespace.
const underscoreEscape = "\x1e"

// MaskHexIDs rewrites runs of five space-separated hex byte pairs (chassis
// IDs printed as "e0 d9 e3 11 22") with underscores so whitespace splitting
// keeps them in one cell. Underscores in the input are escaped first, so
// every underscore in the result comes from a masked run. Line lengths and
// column positions are unchanged.
func MaskHexIDs(s string) string {
	s = strings.ReplaceAll(s, "_", underscoreEscape)
	return hexIDSpaced.ReplaceAllStringFunc(s, func(m string) string {
		return strings.ReplaceAll(m, " ", "_")
	})
}

// UnmaskHexIDs reverses MaskHexIDs on the whole text or on any cell cut
// from it.
func UnmaskHexIDs(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	return strings.ReplaceAll(s, underscoreEscape, "_")
}
