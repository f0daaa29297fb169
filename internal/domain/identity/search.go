package identity

import "strings"

func containsFold(s, lowerTerm string) bool {
	return strings.Contains(strings.ToLower(s), lowerTerm)
}

// NormalizeSearch trims and lower-cases a free-text term.
func NormalizeSearch(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}
