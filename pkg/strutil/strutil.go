// Package strutil provides rune-aware string helpers for fixed-width
// terminal output.
package strutil

import (
	"strings"
	"unicode/utf8"
)

// Truncate returns s cut to maxLen runes. If truncated, a "..." suffix
// is appended (included in maxLen). Returns s unchanged if
// utf8.RuneCountInString(s) <= maxLen.
// Safe for maxLen <= 0 (returns empty string).
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runeCount := utf8.RuneCountInString(s)
	if runeCount <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string([]rune(s)[:maxLen])
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}

// Fit returns s truncated or space-padded to exactly width runes, for
// table cells and boxed rows. s must not contain ANSI sequences; style
// after fitting.
func Fit(s string, width int) string {
	s = Truncate(s, width)
	if pad := width - utf8.RuneCountInString(s); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}
	return s
}
