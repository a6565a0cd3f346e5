package outbox

import (
	"unicode/utf8"
)

// truncateError cuts err's message to at most maxBytes without splitting a rune.
func truncateError(err error, maxBytes int) string {
	if err == nil || maxBytes <= 0 {
		return ""
	}
	s := err.Error()
	if len(s) <= maxBytes {
		return s
	}
	s = s[:maxBytes]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
