package notes

import "strings"

// FilterByTitle returns the notes whose title contains the query,
// case-insensitively, preserving order. An empty or whitespace-only query
// returns the input unchanged. The collection is capped at 20 notes, so a
// full scan on every transition is fine.
func FilterByTitle(list []Note, query string) []Note {
	if strings.TrimSpace(query) == "" {
		return list
	}

	q := strings.ToLower(query)
	var results []Note
	for _, n := range list {
		if strings.Contains(strings.ToLower(n.Title), q) {
			results = append(results, n)
		}
	}
	return results
}
