package domain

import "fmt"

// PreviewKind selects the content kind of a preview request.
type PreviewKind string

const (
	PreviewKindDocument PreviewKind = "document"
	PreviewKindEmail    PreviewKind = "email"
)

// Provenance identifies what a preview request targets: the unfilled
// template itself, or an artifact generated by a batch.
type Provenance string

const (
	ProvenanceTemplate  Provenance = "template"
	ProvenanceGenerated Provenance = "generated"
)

// PreviewRequest addresses exactly one previewable artifact. Template
// provenance requires TemplateID; generated provenance requires FileName
// and BatchID. The two provenance field sets are mutually exclusive.
type PreviewRequest struct {
	Kind       PreviewKind `json:"kind"`
	Provenance Provenance  `json:"provenance"`
	TemplateID string      `json:"templateId,omitempty"`
	FileName   string      `json:"fileName,omitempty"`
	BatchID    string      `json:"batchId,omitempty"`
}

// Validate checks that the request carries exactly one well-formed
// provenance.
// Parameters: none.
// Returns:
//   - error: non-nil if the request is ambiguous or incomplete.
func (r PreviewRequest) Validate() error {
	switch r.Kind {
	case PreviewKindDocument, PreviewKindEmail:
	default:
		return fmt.Errorf("unknown preview kind %q", r.Kind)
	}
	switch r.Provenance {
	case ProvenanceTemplate:
		if r.TemplateID == "" {
			return fmt.Errorf("template preview requires a template id")
		}
		if r.FileName != "" || r.BatchID != "" {
			return fmt.Errorf("template preview must not carry generated-file fields")
		}
	case ProvenanceGenerated:
		if r.FileName == "" {
			return fmt.Errorf("generated preview requires a file name")
		}
		if r.BatchID == "" {
			return fmt.Errorf("generated preview requires a batch id")
		}
		if r.TemplateID != "" {
			return fmt.Errorf("generated preview must not carry a template id")
		}
	default:
		return fmt.Errorf("unknown provenance %q", r.Provenance)
	}
	return nil
}

// Target returns the identifier the request resolves against: the
// template id or the generated file name.
func (r PreviewRequest) Target() string {
	if r.Provenance == ProvenanceTemplate {
		return r.TemplateID
	}
	return r.FileName
}

// EmailPreview is the structured rendering of an email artifact.
// Fallback is set when the fetch failed persistently and only identity
// metadata could be filled in.
type EmailPreview struct {
	Subject     string   `json:"subject"`
	Body        string   `json:"body"`
	IsHTML      bool     `json:"isHtml"`
	From        string   `json:"from,omitempty"`
	To          string   `json:"to,omitempty"`
	Date        string   `json:"date,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
	Fallback    bool     `json:"fallback,omitempty"`
}
