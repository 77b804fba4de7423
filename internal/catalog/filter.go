package catalog

import "strings"

// Filter returns the hotels whose name or location contains query, ignoring case
// and surrounding whitespace. Catalog order is preserved. An empty query matches
// everything; a query that matches nothing yields an empty, non-nil slice.
// The input is never modified.
func Filter(hotels []Hotel, query string) []Hotel {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return cloneAll(hotels)
	}

	out := make([]Hotel, 0)

	for _, h := range hotels {
		if strings.Contains(strings.ToLower(h.Location), q) || strings.Contains(strings.ToLower(h.Name), q) {
			out = append(out, h.clone())
		}
	}

	return out
}
