package backend

import "github.com/marco/formflow/internal/domain"

// Wire types for the form-processing backend. Field names follow the
// backend's JSON contract exactly.

type errorResponse struct {
	Error string `json:"error"`
}

type formTypesResponse struct {
	FormTypes []domain.FormType `json:"formTypes"`
}

type templatesResponse struct {
	Templates []domain.Template `json:"templates"`
}

type previewCSVResponse struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// FileMeta is one generated file entry in a process response.
type FileMeta struct {
	Name string `json:"name"`
	Size string `json:"size"`
	Date string `json:"date"`
}

// ProcessResult is the raw batch descriptor returned by the process
// endpoint. The contract check on BatchID is the caller's concern.
type ProcessResult struct {
	Success      bool       `json:"success"`
	BatchID      string     `json:"batchId"`
	SuccessCount int        `json:"successCount"`
	SuccessRate  string     `json:"successRate"`
	Files        []FileMeta `json:"files"`
}

type emailPreviewResponse struct {
	Subject     string   `json:"subject"`
	Body        string   `json:"body"`
	IsHTML      bool     `json:"isHtml"`
	From        string   `json:"from"`
	To          string   `json:"to"`
	Date        string   `json:"date"`
	Attachments []string `json:"attachments"`
}
