package nlp

import "unicode/utf8"

// TruncateText returns at most maxBytes of text, cut back to a rune boundary
func TruncateText(text string, maxBytes int) string {
	if maxBytes <= 0 {
		return ""
	}
	if len(text) <= maxBytes {
		return text
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
