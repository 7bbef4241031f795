package catalog

import "github.com/marco/formflow/internal/domain"

// View carries the catalog browsing state of one wizard session:
// current filter, search text, sort, and page. Filter or search
// mutations reset the page to 1; sort changes never do. A View is
// owned by its session and is not safe for concurrent use.
type View struct {
	typeFilter string
	search     string
	sortField  SortField
	direction  SortDirection
	page       int
	pageSize   int
}

// NewView creates a View with the default state: all types, name
// ascending, page 1.
func NewView() *View {
	return &View{
		typeFilter: domain.FilterAll,
		sortField:  SortByName,
		direction:  Ascending,
		page:       1,
		pageSize:   DefaultPageSize,
	}
}

// SetTypeFilter changes the type filter. An actual change resets the
// page to 1; re-selecting the current filter is a no-op.
func (v *View) SetTypeFilter(t string) {
	if t == "" {
		t = domain.FilterAll
	}
	if t == v.typeFilter {
		return
	}
	v.typeFilter = t
	v.page = 1
}

// SetSearch changes the free-text search. An actual change resets the
// page to 1.
func (v *View) SetSearch(q string) {
	if q == v.search {
		return
	}
	v.search = q
	v.page = 1
}

// SetSort selects the sort field. Re-selecting the current field
// toggles the direction; a new field sorts ascending. The page is
// never reset by sorting.
func (v *View) SetSort(field SortField) {
	if field == v.sortField {
		if v.direction == Ascending {
			v.direction = Descending
		} else {
			v.direction = Ascending
		}
		return
	}
	v.sortField = field
	v.direction = Ascending
}

// SetDirection sets the sort direction explicitly without resetting
// the page.
func (v *View) SetDirection(dir SortDirection) {
	if dir == Descending {
		v.direction = Descending
	} else {
		v.direction = Ascending
	}
}

// SetPage requests a page. Clamping happens on Apply, when the result
// size is known.
func (v *View) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	v.page = page
}

// Query returns the listing parameters for the current state.
func (v *View) Query() Query {
	return Query{
		Type:      v.typeFilter,
		Search:    v.search,
		Sort:      v.sortField,
		Direction: v.direction,
		Page:      v.page,
		PageSize:  v.pageSize,
	}
}

// Apply lists the given catalog with the view's current state and
// stores the clamped page back on the view.
// Parameters:
//   - templates: full catalog.
// Returns:
//   - Page: current catalog page.
func (v *View) Apply(templates []domain.Template) Page {
	page := List(templates, v.Query())
	v.page = page.Page
	return page
}

// Page returns the current page number.
func (v *View) Page() int {
	return v.page
}
