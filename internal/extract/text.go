package extract

import "strings"

// NormalizeSpace trims s and collapses every internal run of whitespace,
// newlines and tabs included, to a single space.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// joinNormalized normalizes each value and joins the non-empty results.
func joinNormalized(values []string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if n := NormalizeSpace(v); n != "" {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, " ")
}
