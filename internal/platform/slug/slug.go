package slug

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxLen bounds a slug so journal file names stay well under path limits.
const MaxLen = 48

// Make lowercases input and collapses every run of characters that are not
// letters or digits into one dash.
func Make(input string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(input) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	s := b.String()
	if len(s) > MaxLen {
		s = strings.TrimRight(truncate(s, MaxLen), "-")
	}
	if s == "" {
		return "untitled"
	}
	return s
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	cut := 0
	for i, r := range s {
		if i+utf8.RuneLen(r) > n {
			break
		}
		cut = i + utf8.RuneLen(r)
	}
	return s[:cut]
}
