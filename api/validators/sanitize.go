package validators

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// SanitizeString NFC-normalizes free-text query input, drops control
// characters, trims it and caps it at maxLen runes (0 means no cap).
func SanitizeString(input string, maxLen int) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, norm.NFC.String(input))
	cleaned = strings.TrimSpace(cleaned)
	if maxLen <= 0 {
		return cleaned
	}
	if runes := []rune(cleaned); len(runes) > maxLen {
		return strings.TrimSpace(string(runes[:maxLen]))
	}
	return cleaned
}
