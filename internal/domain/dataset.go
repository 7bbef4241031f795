package domain

// MaxDatasetSize is the upper bound for an uploaded dataset file.
// Exactly MaxDatasetSize bytes is accepted; one byte more is rejected.
const MaxDatasetSize = 5 * 1024 * 1024

// UploadedDataset is a validated tabular dataset awaiting submission.
// It is created by the ingestion validator once the backend preview
// succeeds and is discarded on reset or file removal. Content holds the
// raw bytes so the same file can be resubmitted verbatim.
type UploadedDataset struct {
	FileName string     `json:"fileName"`
	Size     int64      `json:"size"`
	Content  []byte     `json:"-"`
	Headers  []string   `json:"headers"`
	Rows     [][]string `json:"rows"`
	RowCount int        `json:"rowCount"`
}
