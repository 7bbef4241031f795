package batch

import (
	"context"
	"time"

	"github.com/marco/formflow/internal/backend"
	"github.com/marco/formflow/internal/domain"
	"github.com/marco/formflow/internal/logger"
)

// Submitter performs the batch submission round trip. Satisfied by
// backend.Client.
type Submitter interface {
	Process(ctx context.Context, templateID, fileName string, content []byte) (*backend.ProcessResult, error)
}

// Recorder persists a trace of successful submissions. Satisfied by
// repository.BatchRepository; nil-safe via NewProcessor.
type Recorder interface {
	Record(ctx context.Context, record *domain.BatchRecord) error
}

// Processor submits a validated dataset and its frozen template for
// backend rendering. One submission is one HTTP round trip; there is
// no automatic retry. A 2xx response without a batchId is a contract
// violation, never a degraded success.
type Processor struct {
	submitter Submitter
	recorder  Recorder
}

// NewProcessor creates a Processor.
// Parameters:
//   - submitter: backend process endpoint wrapper.
//   - recorder: batch history store; nil disables recording.
// Returns:
//   - *Processor: initialized processor.
func NewProcessor(submitter Submitter, recorder Recorder) *Processor {
	return &Processor{submitter: submitter, recorder: recorder}
}

// Submit sends the dataset and template pair for processing.
// Parameters:
//   - ctx: context for cancellation.
//   - template: frozen template the batch renders with.
//   - dataset: validated dataset to render.
// Returns:
//   - *domain.BatchJob: batch descriptor, always carrying a BatchID.
//   - error: ContractViolation when the 2xx response omits batchId;
//     BackendRejected or NetworkFailure otherwise.
func (p *Processor) Submit(ctx context.Context, template domain.Template, dataset *domain.UploadedDataset) (*domain.BatchJob, error) {
	start := time.Now()
	ctx = logger.SetComponent(ctx, "batch")

	result, err := p.submitter.Process(ctx, template.ID, dataset.FileName, dataset.Content)
	if err != nil {
		logger.CtxError(ctx, "Batch submission failed: template=%s, err=%v", template.ID, err)
		return nil, err
	}

	if result.BatchID == "" {
		// The backend answered 2xx but broke its own contract. A
		// fabricated identifier would orphan every later preview and
		// download, so this aborts the attempt.
		logger.CtxError(ctx, "Batch response missing batchId: template=%s", template.ID)
		return nil, &domain.ContractViolation{Field: "batchId"}
	}

	files := make([]domain.GeneratedFile, 0, len(result.Files))
	for _, f := range result.Files {
		files = append(files, domain.GeneratedFile{
			Name: f.Name,
			Size: f.Size,
			Date: f.Date,
			Kind: domain.InferKind(f.Name, template.Type),
		})
	}

	job := &domain.BatchJob{
		BatchID:        result.BatchID,
		SuccessCount:   result.SuccessCount,
		SuccessRate:    result.SuccessRate,
		GeneratedFiles: files,
	}

	logger.CtxInfo(ctx, "Batch submitted: batch_id=%s, files=%d, duration_ms=%d",
		job.BatchID, len(job.GeneratedFiles), time.Since(start).Milliseconds())

	p.record(ctx, template, dataset, job)
	return job, nil
}

// record writes the history trace. Failures are logged, not surfaced:
// history is bookkeeping, not part of the submission outcome.
func (p *Processor) record(ctx context.Context, template domain.Template, dataset *domain.UploadedDataset, job *domain.BatchJob) {
	if p.recorder == nil {
		return
	}
	rec := &domain.BatchRecord{
		BatchID:      job.BatchID,
		TemplateID:   template.ID,
		TemplateName: template.Name,
		TemplateType: template.Type,
		DatasetName:  dataset.FileName,
		RowCount:     dataset.RowCount,
		SuccessCount: job.SuccessCount,
		SuccessRate:  job.SuccessRate,
		FileCount:    len(job.GeneratedFiles),
	}
	if err := p.recorder.Record(ctx, rec); err != nil {
		logger.CtxWarn(ctx, "Failed to record batch history: batch_id=%s, err=%v", job.BatchID, err)
	}
}
