package textproc

import "strings"

// SafeText flattens text onto one line and truncates it to max runes,
// ending in "..." when cut.
func SafeText(text string, max int) string {
	if text == "" {
		return ""
	}
	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if max > 3 && len(runes) > max {
		text = string(runes[:max-3]) + "..."
	}
	return strings.TrimSpace(text)
}

// ASCIIOnly drops every rune outside the ASCII range.
func ASCIIOnly(text string) string {
	return strings.Map(func(r rune) rune {
		if r < 128 {
			return r
		}
		return -1
	}, text)
}
