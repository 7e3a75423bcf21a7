package http

import (
	"strings"
	"unicode/utf8"
)

// maxFieldRunes bounds a single text field after sanitizing.
const maxFieldRunes = 500

// sanitizeInput drops control characters other than tab and newlines, trims
// whitespace and caps the length.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
	if utf8.RuneCountInString(s) > maxFieldRunes {
		s = string([]rune(s)[:maxFieldRunes])
	}
	return s
}

// isConfirmed reports whether a confirmation flag is set to a truthy value.
func isConfirmed(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
