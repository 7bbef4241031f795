package wizard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/marco/formflow/internal/domain"
	"github.com/marco/formflow/internal/ingest"
)

type fakeSource struct {
	templates []domain.Template
	calls     int
	err       error
}

func (f *fakeSource) ListTemplates(_ context.Context) ([]domain.Template, error) {
	f.calls++
	return f.templates, f.err
}

type fakeValidator struct {
	dataset *domain.UploadedDataset
	err     error
}

func (f *fakeValidator) Validate(_ context.Context, _ ingest.File) (*domain.UploadedDataset, error) {
	return f.dataset, f.err
}

// fakeSubmitter optionally blocks until released, for in-flight tests.
type fakeSubmitter struct {
	mu      sync.Mutex
	job     *domain.BatchJob
	err     error
	calls   int
	gate    chan struct{}
	started chan struct{}
}

func (f *fakeSubmitter) Submit(_ context.Context, _ domain.Template, _ *domain.UploadedDataset) (*domain.BatchJob, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	started := f.started
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.job, f.err
}

func (f *fakeSubmitter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testTemplates() []domain.Template {
	return []domain.Template{
		{ID: "w2", Name: "W-2", Type: domain.TemplateTypePDF},
		{ID: "welcome", Name: "Welcome", Type: domain.TemplateTypeEmail},
	}
}

func testDataset() *domain.UploadedDataset {
	return &domain.UploadedDataset{
		FileName: "people.csv",
		Content:  []byte("name\nAda\nGrace"),
		Headers:  []string{"name"},
		Rows:     [][]string{{"Ada"}, {"Grace"}},
		RowCount: 2,
	}
}

func csvFile() ingest.File {
	return ingest.File{Name: "people.csv", Size: 14, Reader: strings.NewReader("name\nAda\nGrace")}
}

func newTestSession(submitter *fakeSubmitter) (*Session, *fakeSource) {
	source := &fakeSource{templates: testTemplates()}
	validator := &fakeValidator{dataset: testDataset()}
	if submitter == nil {
		submitter = &fakeSubmitter{job: &domain.BatchJob{BatchID: "batch_1", SuccessCount: 2}}
	}
	return NewSession(source, validator, submitter), source
}

// advanceToUpload walks a session to the upload step.
func advanceToUpload(t *testing.T, s *Session) {
	t.Helper()
	if err := s.SelectTemplate(context.Background(), "w2"); err != nil {
		t.Fatalf("select template: %v", err)
	}
}

// advanceToReady additionally attaches a dataset.
func advanceToReady(t *testing.T, s *Session) {
	t.Helper()
	advanceToUpload(t, s)
	if _, err := s.AttachDataset(context.Background(), csvFile()); err != nil {
		t.Fatalf("attach dataset: %v", err)
	}
}

func TestSession_StartsAtSelection(t *testing.T) {
	s, _ := newTestSession(nil)
	if s.Step() != StepSelectTemplate {
		t.Errorf("new session must start at selection, got %s", s.Step())
	}
}

func TestSelectTemplate_AdvancesToUpload(t *testing.T) {
	s, _ := newTestSession(nil)

	if err := s.SelectTemplate(context.Background(), "w2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Step() != StepUploadData {
		t.Errorf("expected upload step, got %s", s.Step())
	}
	if tmpl, ok := s.Selected(); !ok || tmpl.ID != "w2" {
		t.Errorf("selection not stored")
	}
}

func TestSelectTemplate_UnknownID(t *testing.T) {
	s, _ := newTestSession(nil)
	if err := s.SelectTemplate(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for unknown template")
	}
	if s.Step() != StepSelectTemplate {
		t.Errorf("failed selection must not advance the step")
	}
}

func TestSelectTemplate_FrozenAfterUploadBegins(t *testing.T) {
	s, _ := newTestSession(nil)
	advanceToUpload(t, s)

	err := s.SelectTemplate(context.Background(), "welcome")
	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("selection must be frozen outside the selection step, got %v", err)
	}
}

func TestCatalogFetchedOncePerSession(t *testing.T) {
	s, source := newTestSession(nil)

	for i := 0; i < 3; i++ {
		if _, err := s.CatalogPage(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if source.calls != 1 {
		t.Errorf("catalog must be fetched once per session, got %d fetches", source.calls)
	}
}

func TestSubmit_RequiresUploadStepAndState(t *testing.T) {
	s, _ := newTestSession(nil)

	if _, err := s.Submit(context.Background()); err == nil {
		t.Error("submit from selection step must be rejected")
	}

	advanceToUpload(t, s)
	if _, err := s.Submit(context.Background()); !errors.Is(err, ErrNoDataset) {
		t.Errorf("submit without dataset must fail with ErrNoDataset, got %v", err)
	}
}

func TestSubmit_SuccessReachesResults(t *testing.T) {
	s, _ := newTestSession(nil)
	advanceToReady(t, s)

	job, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.BatchID != "batch_1" {
		t.Errorf("expected batch_1, got %q", job.BatchID)
	}
	if s.Step() != StepResults {
		t.Errorf("expected results step, got %s", s.Step())
	}
	if got, ok := s.Job(); !ok || got.BatchID != "batch_1" {
		t.Errorf("job not exposed on session")
	}
}

func TestSubmit_SecondSubmissionRejectedWhileInFlight(t *testing.T) {
	submitter := &fakeSubmitter{
		job:     &domain.BatchJob{BatchID: "batch_1"},
		gate:    make(chan struct{}),
		started: make(chan struct{}),
	}
	s, _ := newTestSession(submitter)
	advanceToReady(t, s)

	firstDone := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background())
		firstDone <- err
	}()
	<-submitter.started

	if _, err := s.Submit(context.Background()); !errors.Is(err, ErrSubmissionInFlight) {
		t.Fatalf("concurrent submit must be rejected, got %v", err)
	}

	close(submitter.gate)
	if err := <-firstDone; err != nil {
		t.Fatalf("first submission should have succeeded: %v", err)
	}
	if submitter.callCount() != 1 {
		t.Errorf("exactly one submission may reach the backend, got %d", submitter.callCount())
	}
}

func TestSubmit_FailureLandsInResultsButStaysRetryable(t *testing.T) {
	submitter := &fakeSubmitter{err: &domain.BackendRejected{Status: 400, Message: "Form type not specified"}}
	s, _ := newTestSession(submitter)
	advanceToReady(t, s)

	_, err := s.Submit(context.Background())
	if err == nil {
		t.Fatal("expected submission failure")
	}
	if s.Step() != StepResults {
		t.Errorf("failure must still resolve to results, got %s", s.Step())
	}
	if _, ok := s.Job(); ok {
		t.Errorf("failed submission must not leave a job")
	}

	// Explicit retry path: back to upload, dataset intact, resubmit.
	if err := s.ReturnToUpload(); err != nil {
		t.Fatalf("return to upload: %v", err)
	}
	if _, ok := s.Dataset(); !ok {
		t.Errorf("retry path must keep the validated dataset")
	}
	submitter.mu.Lock()
	submitter.err = nil
	submitter.job = &domain.BatchJob{BatchID: "batch_2"}
	submitter.mu.Unlock()

	job, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("resubmit failed: %v", err)
	}
	if job.BatchID != "batch_2" {
		t.Errorf("expected batch_2 on retry, got %q", job.BatchID)
	}
}

func TestSubmit_ContractViolationNeverYieldsResultsJob(t *testing.T) {
	submitter := &fakeSubmitter{err: &domain.ContractViolation{Field: "batchId"}}
	s, _ := newTestSession(submitter)
	advanceToReady(t, s)

	_, err := s.Submit(context.Background())
	var cv *domain.ContractViolation
	if !errors.As(err, &cv) {
		t.Fatalf("expected ContractViolation, got %v", err)
	}
	if _, ok := s.Job(); ok {
		t.Fatal("a violated contract must never surface as a completed job")
	}
	snap := s.Snapshot()
	if snap.ErrorKind != "contract_violation" {
		t.Errorf("snapshot must carry the taxonomy kind, got %q", snap.ErrorKind)
	}
}

func TestReset_ClearsEverything(t *testing.T) {
	s, _ := newTestSession(nil)
	advanceToReady(t, s)
	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}

	s.Reset()

	if s.Step() != StepSelectTemplate {
		t.Errorf("reset must return to selection, got %s", s.Step())
	}
	if _, ok := s.Selected(); ok {
		t.Errorf("reset must clear the selection")
	}
	if _, ok := s.Dataset(); ok {
		t.Errorf("reset must clear the dataset")
	}
	if _, ok := s.Job(); ok {
		t.Errorf("reset must clear the batch")
	}
	if s.LastError() != nil {
		t.Errorf("reset must clear error state")
	}
}

func TestReset_DiscardsInFlightResolution(t *testing.T) {
	submitter := &fakeSubmitter{
		job:     &domain.BatchJob{BatchID: "batch_zombie"},
		gate:    make(chan struct{}),
		started: make(chan struct{}),
	}
	s, _ := newTestSession(submitter)
	advanceToReady(t, s)

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background())
		done <- err
	}()
	<-submitter.started

	s.Reset()
	close(submitter.gate)

	if err := <-done; err == nil {
		t.Fatal("stale resolution must not be applied after reset")
	}
	if _, ok := s.Job(); ok {
		t.Errorf("a dead epoch's batch must never appear on the session")
	}
	if s.Step() != StepSelectTemplate {
		t.Errorf("reset state must win, got %s", s.Step())
	}
}

func TestAttachDataset_ValidationErrorSurfaced(t *testing.T) {
	source := &fakeSource{templates: testTemplates()}
	validator := &fakeValidator{err: domain.NewInvalidType("data.txt")}
	s := NewSession(source, validator, &fakeSubmitter{})
	advanceToUpload(t, s)

	_, err := s.AttachDataset(context.Background(), ingest.File{Name: "data.txt"})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := s.Dataset(); ok {
		t.Errorf("failed validation must not attach a dataset")
	}
	if s.Step() != StepUploadData {
		t.Errorf("validation failure keeps the session in upload, got %s", s.Step())
	}
}

func TestRemoveDataset(t *testing.T) {
	s, _ := newTestSession(nil)
	advanceToReady(t, s)

	s.RemoveDataset()
	if _, ok := s.Dataset(); ok {
		t.Errorf("dataset must be discarded on removal")
	}
}

func TestManager_Lifecycle(t *testing.T) {
	m := NewManager(&fakeSource{templates: testTemplates()}, &fakeValidator{dataset: testDataset()}, &fakeSubmitter{})

	s := m.Create()
	got, err := m.Get(s.ID)
	if err != nil || got != s {
		t.Fatalf("expected to retrieve the created session")
	}

	m.Delete(s.ID)
	if _, err := m.Get(s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("deleted session must not be found")
	}
	if m.Count() != 0 {
		t.Errorf("expected zero sessions, got %d", m.Count())
	}
}
