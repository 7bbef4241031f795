package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/marco/formflow/internal/catalog"
	"github.com/marco/formflow/internal/domain"
	"github.com/marco/formflow/internal/ingest"
	"github.com/marco/formflow/internal/logger"
)

// Step is one stage of the guided workflow.
type Step string

const (
	StepSelectTemplate Step = "select_template"
	StepUploadData     Step = "upload_data"
	StepProcessing     Step = "processing"
	StepResults        Step = "results"
)

var (
	// ErrSubmissionInFlight rejects a second submit while one is
	// already awaiting resolution.
	ErrSubmissionInFlight = errors.New("a submission is already in flight")

	// ErrNoTemplate guards transitions that require a selection.
	ErrNoTemplate = errors.New("no template selected")

	// ErrNoDataset guards submission without a validated dataset.
	ErrNoDataset = errors.New("no validated dataset attached")
)

// TransitionError reports a command issued in a step that does not
// permit it.
type TransitionError struct {
	Step    Step
	Command string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while in step %s", e.Command, e.Step)
}

// TemplateSource fetches the template catalog. Satisfied by
// backend.Client.
type TemplateSource interface {
	ListTemplates(ctx context.Context) ([]domain.Template, error)
}

// DatasetValidator runs the ingestion sequence. Satisfied by
// ingest.Validator.
type DatasetValidator interface {
	Validate(ctx context.Context, file ingest.File) (*domain.UploadedDataset, error)
}

// Submitter performs the batch submission. Satisfied by
// batch.Processor.
type Submitter interface {
	Submit(ctx context.Context, template domain.Template, dataset *domain.UploadedDataset) (*domain.BatchJob, error)
}

// Session is one wizard run: the canonical session state and the state
// machine that guards every mutation. All commands are safe for
// concurrent use; the mutex serializes state changes while network
// calls run outside it, gated by identity tokens so a stale resolution
// can never touch newer state.
type Session struct {
	ID string

	source    TemplateSource
	validator DatasetValidator
	submitter Submitter

	mu        sync.Mutex
	step      Step
	templates []domain.Template
	loaded    bool
	view      *catalog.View
	selected  *domain.Template
	dataset   *domain.UploadedDataset
	job       *domain.BatchJob
	lastErr   error

	// submitSeq identifies the current submission epoch; bumped by
	// reset so an in-flight resolution from a previous epoch is
	// discarded on arrival.
	submitSeq uint64
	inFlight  bool
}

// NewSession creates a Session in the template selection step.
// Parameters:
//   - source: template catalog source.
//   - validator: dataset validator.
//   - submitter: batch submitter.
// Returns:
//   - *Session: initialized session with a fresh uuid.
func NewSession(source TemplateSource, validator DatasetValidator, submitter Submitter) *Session {
	return &Session{
		ID:        uuid.New().String(),
		source:    source,
		validator: validator,
		submitter: submitter,
		step:      StepSelectTemplate,
		view:      catalog.NewView(),
	}
}

// Step returns the current wizard step.
func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// ensureTemplates fetches the catalog once per session.
func (s *Session) ensureTemplates(ctx context.Context) error {
	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	templates, err := s.source.ListTemplates(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if !s.loaded {
		s.templates = templates
		s.loaded = true
	}
	s.mu.Unlock()
	return nil
}

// CatalogPage returns the current catalog page for the session's
// filter, sort, and page state, fetching the catalog on first use.
// Parameters:
//   - ctx: context for cancellation.
// Returns:
//   - catalog.Page: current page.
//   - error: non-nil if the catalog fetch fails.
func (s *Session) CatalogPage(ctx context.Context) (catalog.Page, error) {
	if err := s.ensureTemplates(ctx); err != nil {
		return catalog.Page{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Apply(s.templates), nil
}

// SetTypeFilter updates the catalog type filter.
func (s *Session) SetTypeFilter(t string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.SetTypeFilter(t)
}

// SetSearch updates the catalog search text.
func (s *Session) SetSearch(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.SetSearch(q)
}

// SetSort selects the catalog sort field, toggling direction on
// re-selection.
func (s *Session) SetSort(field catalog.SortField) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.SetSort(field)
}

// ApplySort sets the sort field and direction explicitly, without the
// toggle behavior of SetSort. The page is never reset by sorting.
func (s *Session) ApplySort(field catalog.SortField, dir catalog.SortDirection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view.Query().Sort != field {
		s.view.SetSort(field)
	}
	s.view.SetDirection(dir)
}

// SetPage requests a catalog page.
func (s *Session) SetPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.SetPage(page)
}

// SelectTemplate chooses a template by id and advances to the upload
// step. Only valid while selecting.
// Parameters:
//   - ctx: context for cancellation (catalog may need fetching).
//   - templateID: catalog identity of the selection.
// Returns:
//   - error: TransitionError outside the selection step; lookup error
//     if the id is not in the catalog.
func (s *Session) SelectTemplate(ctx context.Context, templateID string) error {
	if err := s.ensureTemplates(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepSelectTemplate {
		return &TransitionError{Step: s.step, Command: "select a template"}
	}

	for i := range s.templates {
		if s.templates[i].ID == templateID {
			t := s.templates[i]
			s.selected = &t
			s.step = StepUploadData
			logger.CtxInfo(ctx, "Template selected: session=%s, template=%s", s.ID, templateID)
			return nil
		}
	}
	return fmt.Errorf("template %q not found in catalog", templateID)
}

// AttachDataset validates an uploaded file and stores the resulting
// dataset. Both upload routes call this same method, so validation is
// path-independent. Only valid in the upload step.
// Parameters:
//   - ctx: context for cancellation.
//   - file: uploaded file descriptor.
// Returns:
//   - *domain.UploadedDataset: validated dataset.
//   - error: TransitionError outside the upload step; validation or
//     preview errors otherwise.
func (s *Session) AttachDataset(ctx context.Context, file ingest.File) (*domain.UploadedDataset, error) {
	s.mu.Lock()
	if s.step != StepUploadData {
		step := s.step
		s.mu.Unlock()
		return nil, &TransitionError{Step: step, Command: "attach a dataset"}
	}
	s.mu.Unlock()

	dataset, err := s.validator.Validate(ctx, file)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = err
		return nil, err
	}
	if s.step != StepUploadData {
		// The session moved on while validation ran; discard.
		return nil, &TransitionError{Step: s.step, Command: "attach a dataset"}
	}
	s.dataset = dataset
	s.lastErr = nil
	return dataset, nil
}

// RemoveDataset discards the attached dataset.
func (s *Session) RemoveDataset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataset = nil
}

// Submit sends the frozen template and validated dataset for
// processing. Exactly one submission may be in flight; the session is
// in StepProcessing until the submission resolves, then StepResults
// whether it succeeded or failed. A failed attempt leaves the session
// addressable for an explicit retry via ReturnToUpload.
// Parameters:
//   - ctx: context for cancellation.
// Returns:
//   - *domain.BatchJob: batch descriptor on success.
//   - error: guard violations, or the submission failure.
func (s *Session) Submit(ctx context.Context) (*domain.BatchJob, error) {
	s.mu.Lock()
	if s.step == StepProcessing || s.inFlight {
		s.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	if s.step != StepUploadData {
		step := s.step
		s.mu.Unlock()
		return nil, &TransitionError{Step: step, Command: "submit"}
	}
	if s.selected == nil {
		s.mu.Unlock()
		return nil, ErrNoTemplate
	}
	if s.dataset == nil {
		s.mu.Unlock()
		return nil, ErrNoDataset
	}

	template := *s.selected
	dataset := s.dataset
	s.step = StepProcessing
	s.inFlight = true
	token := s.submitSeq
	s.mu.Unlock()

	ctx = logger.SetSessionID(ctx, s.ID)
	job, err := s.submitter.Submit(ctx, template, dataset)

	s.mu.Lock()
	defer s.mu.Unlock()

	if token != s.submitSeq {
		// The session was reset while the submission was in flight;
		// the resolution belongs to a dead epoch.
		logger.CtxWarn(ctx, "Discarded stale submission result: session=%s", s.ID)
		return nil, &TransitionError{Step: s.step, Command: "apply a stale submission"}
	}

	s.inFlight = false
	s.step = StepResults
	if err != nil {
		s.lastErr = err
		s.job = nil
		return nil, err
	}
	s.job = job
	s.lastErr = nil
	return job, nil
}

// ReturnToUpload re-enters the upload step from the results step, the
// explicit retry path after a failed or rejected submission. The batch
// and error state are cleared; the dataset and template selection are
// kept.
func (s *Session) ReturnToUpload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepResults {
		return &TransitionError{Step: s.step, Command: "return to upload"}
	}
	s.step = StepUploadData
	s.job = nil
	s.lastErr = nil
	return nil
}

// Reset returns the session to template selection, clearing the
// selection, the dataset, the batch, and all transient error state.
// Valid from any step; an in-flight submission's late resolution is
// discarded by the epoch bump.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step = StepSelectTemplate
	s.selected = nil
	s.dataset = nil
	s.job = nil
	s.lastErr = nil
	s.inFlight = false
	s.submitSeq++
}

// Selected returns the frozen template, if any.
func (s *Session) Selected() (domain.Template, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return domain.Template{}, false
	}
	return *s.selected, true
}

// Dataset returns the attached dataset, if any.
func (s *Session) Dataset() (*domain.UploadedDataset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataset, s.dataset != nil
}

// Job returns the batch descriptor, if a submission succeeded.
func (s *Session) Job() (*domain.BatchJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.job, s.job != nil
}

// LastError returns the most recent surfaced error, if any.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Snapshot is a read-only view of the session for API surfaces.
type Snapshot struct {
	ID          string           `json:"id"`
	Step        Step             `json:"step"`
	Template    *domain.Template `json:"template,omitempty"`
	DatasetName string           `json:"datasetName,omitempty"`
	DatasetRows int              `json:"datasetRows,omitempty"`
	Job         *domain.BatchJob `json:"job,omitempty"`
	Error       string           `json:"error,omitempty"`
	ErrorKind   string           `json:"errorKind,omitempty"`
}

// Snapshot captures the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{ID: s.ID, Step: s.step}
	if s.selected != nil {
		t := *s.selected
		snap.Template = &t
	}
	if s.dataset != nil {
		snap.DatasetName = s.dataset.FileName
		snap.DatasetRows = s.dataset.RowCount
	}
	if s.job != nil {
		job := *s.job
		snap.Job = &job
	}
	if s.lastErr != nil {
		snap.Error = s.lastErr.Error()
		snap.ErrorKind = errorKind(s.lastErr)
	}
	return snap
}

// errorKind maps an error onto its taxonomy bucket for API clients.
func errorKind(err error) string {
	switch {
	case domain.IsValidation(err):
		return "validation"
	case domain.IsBackendRejected(err):
		return "backend_rejected"
	case domain.IsContractViolation(err):
		return "contract_violation"
	case domain.IsNetworkFailure(err):
		return "network_failure"
	default:
		return "internal"
	}
}
