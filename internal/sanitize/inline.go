// Package sanitize flattens untrusted text from scanned trees before it is
// embedded in terminal or markdown output. File names and code snippets come
// straight from the repo under analysis and can carry control characters.
package sanitize

import (
	"strings"
	"unicode/utf8"
)

// Inline collapses whitespace runs to single spaces, drops control
// characters, and truncates to max bytes with a trailing ellipsis.
// max <= 0 means no truncation.
func Inline(text string, max int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))

	for _, r := range text {
		switch r {
		case '\n', '\r', '\t':
			b.WriteRune(' ')
		default:
			if r < 0x20 || r == 0x7f {
				continue
			}
			if !utf8.ValidRune(r) {
				continue
			}
			b.WriteRune(r)
		}
	}

	out := strings.TrimSpace(b.String())
	if max > 0 && len(out) > max {
		out = out[:max] + "..."
	}
	return out
}
