package note

import (
	"slices"
	"strings"
)

// Apply filters notes by search text and category, then sorts them stably
// so equal keys keep their stored order.
func Apply(notes []Note, q Query) []Note {
	out := make([]Note, 0, len(notes))
	search := strings.ToLower(q.Search)
	for _, n := range notes {
		if search != "" && !matches(n, search) {
			continue
		}
		if q.Category != "" && n.Category != q.Category {
			continue
		}
		out = append(out, n)
	}

	slices.SortStableFunc(out, func(a, b Note) int {
		c := compare(a, b, q.SortBy)
		if !q.Ascending {
			c = -c
		}
		return c
	})
	return out
}

func matches(n Note, search string) bool {
	if strings.Contains(strings.ToLower(n.Title), search) || strings.Contains(strings.ToLower(n.Content), search) {
		return true
	}
	for _, tag := range n.Tags {
		if strings.Contains(strings.ToLower(tag), search) {
			return true
		}
	}
	return false
}

func compare(a, b Note, field SortField) int {
	switch field {
	case SortByTitle:
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case SortByUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

// ParseQuery reads the list parameters, falling back to newest-first by
// creation time for unknown values.
func ParseQuery(search, category, sortBy, sortOrder string) Query {
	q := Query{
		Search:    strings.TrimSpace(search),
		Category:  strings.TrimSpace(category),
		SortBy:    SortByCreatedAt,
		Ascending: sortOrder == "asc",
	}
	switch SortField(sortBy) {
	case SortByUpdatedAt, SortByTitle:
		q.SortBy = SortField(sortBy)
	}
	return q
}
