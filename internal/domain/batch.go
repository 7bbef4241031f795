package domain

import (
	"strconv"
	"strings"
)

// GeneratedKind classifies a generated artifact by content kind.
type GeneratedKind string

const (
	GeneratedKindDocument GeneratedKind = "document"
	GeneratedKindEmail    GeneratedKind = "email"
)

// GeneratedFile is one artifact produced by a batch run. Size and Date
// are carried as the backend formats them (e.g. "12.34 KB", "2025-03-18").
type GeneratedFile struct {
	Name string        `json:"name"`
	Size string        `json:"size"`
	Date string        `json:"date"`
	Kind GeneratedKind `json:"kind"`
}

// BatchJob is the descriptor of one completed submission. It is built
// only from a successful process response; BatchID is backend-assigned
// and never synthesized client-side.
type BatchJob struct {
	BatchID        string          `json:"batchId"`
	SuccessCount   int             `json:"successCount"`
	SuccessRate    string          `json:"successRate"`
	GeneratedFiles []GeneratedFile `json:"generatedFiles"`
}

// InferKind determines a generated file's content kind from its name
// suffix, falling back to the template type that produced the batch.
// Parameters:
//   - name: generated file name.
//   - templateType: type of the template the batch was rendered from.
// Returns:
//   - GeneratedKind: document or email.
func InferKind(name string, templateType TemplateType) GeneratedKind {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".eml"):
		return GeneratedKindEmail
	case strings.HasSuffix(lower, ".pdf"), strings.HasSuffix(lower, ".tif"), strings.HasSuffix(lower, ".tiff"):
		return GeneratedKindDocument
	}
	if templateType == TemplateTypeEmail {
		return GeneratedKindEmail
	}
	return GeneratedKindDocument
}

// SuccessRatio parses the backend's formatted success rate ("85%") into
// a fraction in [0,1]. Returns 0 when the rate is absent or malformed.
func (b *BatchJob) SuccessRatio() float64 {
	rate := strings.TrimSuffix(strings.TrimSpace(b.SuccessRate), "%")
	if rate == "" {
		return 0
	}
	pct, err := strconv.ParseFloat(rate, 64)
	if err != nil {
		return 0
	}
	return pct / 100
}

// FileNamed returns the generated file with the given name, if present.
func (b *BatchJob) FileNamed(name string) (GeneratedFile, bool) {
	for _, f := range b.GeneratedFiles {
		if f.Name == name {
			return f, true
		}
	}
	return GeneratedFile{}, false
}
