package fetch

import "strings"

// Relevant reports whether the entry matches any of the source's keywords,
// case-insensitively, in its title, description, or tag text. The title is
// checked first and short-circuits, which must produce the same accept/reject
// decision as matching against the concatenated text. Pure predicate, no side
// effects.
func Relevant(entry RawEntry, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}

	title := strings.ToLower(entry.Title)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(title, strings.ToLower(kw)) {
			return true
		}
	}

	rest := strings.ToLower(entry.Description + " " + strings.Join(entry.Tags, " "))
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(rest, strings.ToLower(kw)) {
			return true
		}
	}

	return false
}
