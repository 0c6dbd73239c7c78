// Package text provides utilities for text processing shared across the
// pipeline, such as rune-aware counting and truncation. Counting runes
// instead of bytes keeps multibyte characters (Japanese, emoji) intact.
package text

// CountRunes counts the number of Unicode characters (runes) in the given text.
func CountRunes(text string) int {
	return len([]rune(text))
}

// TruncateRunes truncates text to at most limit runes. Truncation never splits
// a multibyte character. Returns the text unchanged when it already fits.
func TruncateRunes(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
