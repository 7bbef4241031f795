package catalog

import (
	"sort"
	"strings"

	"github.com/marco/formflow/internal/domain"
)

// SortField selects the template attribute a catalog page is ordered by.
type SortField string

const (
	SortByName     SortField = "name"
	SortByType     SortField = "type"
	SortByModified SortField = "lastModified"
)

// SortDirection is the ordering direction of a catalog page.
type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// DefaultPageSize is the catalog page size.
const DefaultPageSize = 10

// Query describes one catalog listing request: filter, sort, and page.
type Query struct {
	Type      string
	Search    string
	Sort      SortField
	Direction SortDirection
	Page      int
	PageSize  int
}

// Page is one filtered, sorted slice of the catalog.
type Page struct {
	Items      []domain.Template `json:"items"`
	TotalCount int               `json:"totalCount"`
	TotalPages int               `json:"totalPages"`
	Page       int               `json:"page"`
}

// List filters, sorts, and paginates a flat template list. The input
// slice is never modified. Pages are 1-indexed; an out-of-range page is
// clamped rather than rejected.
// Parameters:
//   - templates: full catalog as fetched from the backend.
//   - q: filter, sort, and pagination parameters.
// Returns:
//   - Page: the requested page with totals and the clamped page number.
func List(templates []domain.Template, q Query) Page {
	filtered := filter(templates, q.Type, q.Search)
	sortTemplates(filtered, q.Sort, q.Direction)

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	total := len(filtered)
	totalPages := (total + pageSize - 1) / pageSize

	page := q.Page
	if page < 1 {
		page = 1
	}
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return Page{
		Items:      filtered[start:end],
		TotalCount: total,
		TotalPages: totalPages,
		Page:       page,
	}
}

// filter applies the type filter and the free-text search. The type
// must match exactly unless it is "all"; the search matches
// case-insensitively as a substring of name, description, or id.
func filter(templates []domain.Template, typeFilter, search string) []domain.Template {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]domain.Template, 0, len(templates))
	for _, t := range templates {
		if typeFilter != "" && typeFilter != domain.FilterAll && string(t.Type) != typeFilter {
			continue
		}
		if needle != "" && !matches(t, needle) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matches(t domain.Template, needle string) bool {
	return strings.Contains(strings.ToLower(t.Name), needle) ||
		strings.Contains(strings.ToLower(t.Description), needle) ||
		strings.Contains(strings.ToLower(t.ID), needle)
}

// sortTemplates orders templates in place. The sort is stable: equal
// keys preserve their prior relative order. lastModified compares
// chronologically, falling back to the raw string when unparseable.
func sortTemplates(templates []domain.Template, field SortField, dir SortDirection) {
	if field == "" {
		field = SortByName
	}

	less := func(a, b domain.Template) bool {
		switch field {
		case SortByType:
			return a.Type < b.Type
		case SortByModified:
			ta, okA := a.ModifiedTime()
			tb, okB := b.ModifiedTime()
			if okA && okB {
				return ta.Before(tb)
			}
			return a.LastModified < b.LastModified
		default:
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	}

	sort.SliceStable(templates, func(i, j int) bool {
		if dir == Descending {
			return less(templates[j], templates[i])
		}
		return less(templates[i], templates[j])
	})
}
