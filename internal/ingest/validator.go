package ingest

import (
	"context"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/marco/formflow/internal/domain"
	"github.com/marco/formflow/internal/logger"
)

// Previewer obtains a structured preview of a dataset file from the
// backend. Satisfied by backend.Client.
type Previewer interface {
	PreviewCSV(ctx context.Context, fileName string, content []byte) (headers []string, rows [][]string, err error)
}

// Validator checks an uploaded dataset file and turns it into an
// UploadedDataset. Checks run in a fixed order: file type, size limit,
// backend preview. Every upload route funnels through the same
// Validate call, so behavior is identical regardless of how the file
// arrived.
type Validator struct {
	previewer Previewer
}

// NewValidator creates a Validator backed by the given previewer.
// Parameters:
//   - previewer: backend preview endpoint wrapper.
// Returns:
//   - *Validator: initialized validator.
func NewValidator(previewer Previewer) *Validator {
	return &Validator{previewer: previewer}
}

// File is the minimal description of an uploaded file handed to the
// validator: its declared name and type plus a way to read the bytes.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Reader      io.Reader
}

// Validate runs the full ingestion sequence on one uploaded file.
// Parameters:
//   - ctx: context for cancellation.
//   - file: uploaded file descriptor.
// Returns:
//   - *domain.UploadedDataset: validated dataset on success.
//   - error: ValidationError before any network call, BackendRejected
//     or NetworkFailure from the preview round trip.
func (v *Validator) Validate(ctx context.Context, file File) (*domain.UploadedDataset, error) {
	if !csvCompatible(file.Name, file.ContentType) {
		return nil, domain.NewInvalidType(file.Name)
	}
	if file.Size > domain.MaxDatasetSize {
		return nil, domain.NewTooLarge(file.Size)
	}

	content, err := io.ReadAll(io.LimitReader(file.Reader, domain.MaxDatasetSize+1))
	if err != nil {
		return nil, &domain.NetworkFailure{Op: "read dataset", Err: err}
	}
	// The declared size can lie; re-check what was actually read.
	if int64(len(content)) > domain.MaxDatasetSize {
		return nil, domain.NewTooLarge(int64(len(content)))
	}

	headers, rows, err := v.previewer.PreviewCSV(ctx, file.Name, content)
	if err != nil {
		return nil, err
	}

	dataset := &domain.UploadedDataset{
		FileName: file.Name,
		Size:     int64(len(content)),
		Content:  content,
		Headers:  headers,
		Rows:     rows,
		RowCount: len(rows),
	}
	logger.CtxInfo(ctx, "Dataset validated: file=%s, rows=%d, columns=%d",
		dataset.FileName, dataset.RowCount, len(dataset.Headers))
	return dataset, nil
}

// csvCompatible reports whether the file's extension or declared media
// type identifies a CSV.
func csvCompatible(name, contentType string) bool {
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return true
	}
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch mediaType {
	case "text/csv", "application/csv", "application/vnd.ms-excel":
		return true
	}
	return false
}
