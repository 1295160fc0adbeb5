package text

import "strings"

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Normalize canonicalizes line endings to "\n" and drops byte-order marks.
// Invalid UTF-8 is replaced with U+FFFD so every later offset is a rune offset.
func Normalize(s string) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	s = lineEndings.Replace(s)
	return strings.ReplaceAll(s, "\ufeff", "")
}
