package validators

import (
	"strings"
	"unicode"
)

// SearchTerm normalizes a free-text query parameter: control characters are
// dropped, runs of whitespace collapse to one space, and the result is cut at
// maxRunes runes (0 means no limit).
func SearchTerm(input string, maxRunes int) string {
	var b strings.Builder
	space := false
	count := 0
	for _, r := range strings.TrimSpace(input) {
		if maxRunes > 0 && count >= maxRunes {
			break
		}
		switch {
		case unicode.IsSpace(r):
			space = true
			continue
		case unicode.IsControl(r):
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
			count++
			if maxRunes > 0 && count >= maxRunes {
				break
			}
		}
		space = false
		b.WriteRune(r)
		count++
	}
	return b.String()
}
