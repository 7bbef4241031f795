package domain

import "time"

// TemplateType represents the rendering target of a template.
// Values include TemplateTypePDF, TemplateTypeTIF, and TemplateTypeEmail.
type TemplateType string

const (
	TemplateTypePDF   TemplateType = "pdf"
	TemplateTypeTIF   TemplateType = "tif"
	TemplateTypeEmail TemplateType = "email"
)

// FilterAll is the catalog filter value that bypasses the type check.
const FilterAll = "all"

// Template is a reusable rendering definition sourced from the backend
// catalog. Templates are read-only; identity is ID.
type Template struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Type         TemplateType `json:"type"`
	Description  string       `json:"description"`
	LastModified string       `json:"lastModified"`
}

// FormType is a selectable template category exposed by the backend.
type FormType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// modifiedLayouts lists the date formats the backend is known to emit for
// lastModified, most specific first.
var modifiedLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ModifiedTime parses the template's lastModified stamp.
// Parameters: none.
// Returns:
//   - time.Time: parsed modification time, zero if unparseable.
//   - bool: true if the stamp matched a known layout.
func (t Template) ModifiedTime() (time.Time, bool) {
	for _, layout := range modifiedLayouts {
		if ts, err := time.Parse(layout, t.LastModified); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
