package manager

import (
	"strings"
	"unicode"
)

// SanitizeName makes a device name safe for filesystem use. Alphanumerics,
// hyphens, underscores and periods pass through; everything else becomes an
// underscore.
func SanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// SanitizeNameForCommand makes a device name safe to pass as a command line
// argument. Quotes and whitespace are dropped entirely, other unsafe runes
// become underscores, and leading or trailing non-alphanumerics are trimmed.
func SanitizeNameForCommand(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == '"' || r == '\'' || r == ' ' || r == '\t' || r == '\n' || r == '\r':
			// dropped
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	s := b.String()
	s = strings.TrimLeftFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	s = strings.TrimRightFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return s
}
