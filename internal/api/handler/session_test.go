package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/marco/formflow/internal/domain"
	"github.com/marco/formflow/internal/ingest"
	"github.com/marco/formflow/internal/wizard"
)

type fakeSource struct {
	templates []domain.Template
}

func (f *fakeSource) ListTemplates(ctx context.Context) ([]domain.Template, error) {
	return f.templates, nil
}

type fakeValidator struct{}

func (f *fakeValidator) Validate(ctx context.Context, file ingest.File) (*domain.UploadedDataset, error) {
	if !strings.HasSuffix(strings.ToLower(file.Name), ".csv") {
		return nil, domain.NewInvalidType(file.Name)
	}
	return &domain.UploadedDataset{
		FileName: file.Name,
		Headers:  []string{"name"},
		Rows:     [][]string{{"Ada"}},
		RowCount: 1,
	}, nil
}

type fakeSubmitter struct {
	err error
}

func (f *fakeSubmitter) Submit(ctx context.Context, template domain.Template, dataset *domain.UploadedDataset) (*domain.BatchJob, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.BatchJob{BatchID: "batch_1", SuccessCount: 1, SuccessRate: "100%"}, nil
}

func newTestRouter(submitErr error) (*gin.Engine, *wizard.Manager) {
	gin.SetMode(gin.TestMode)

	source := &fakeSource{templates: []domain.Template{
		{ID: "invoice", Name: "Invoice", Type: domain.TemplateTypePDF, LastModified: "2025-03-18"},
	}}
	manager := wizard.NewManager(source, &fakeValidator{}, &fakeSubmitter{err: submitErr})
	h := NewSessionHandler(manager)

	r := gin.New()
	v1 := r.Group("/api/v1")
	v1.POST("/sessions", h.Create)
	v1.GET("/sessions/:id", h.Get)
	v1.GET("/sessions/:id/catalog", h.Catalog)
	v1.POST("/sessions/:id/template", h.SelectTemplate)
	v1.POST("/sessions/:id/dataset", h.UploadDataset)
	v1.POST("/sessions/:id/submit", h.Submit)
	v1.POST("/sessions/:id/reset", h.Reset)
	return r, manager
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var decoded map[string]interface{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	}
	return w, decoded
}

func uploadCSV(t *testing.T, r *gin.Engine, sessionID, fileName string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte("name\nAda\n"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/dataset", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSessionLifecycle(t *testing.T) {
	r, _ := newTestRouter(nil)

	// Create
	w, created := doJSON(t, r, http.MethodPost, "/api/v1/sessions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", w.Code)
	}
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatal("create: missing session id")
	}
	if created["step"] != "select_template" {
		t.Errorf("create: expected step select_template, got %v", created["step"])
	}

	// Select template
	w, snap := doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/template",
		map[string]string{"templateId": "invoice"})
	if w.Code != http.StatusOK {
		t.Fatalf("select: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if snap["step"] != "upload_data" {
		t.Errorf("select: expected step upload_data, got %v", snap["step"])
	}

	// Upload dataset
	w = uploadCSV(t, r, id, "people.csv")
	if w.Code != http.StatusOK {
		t.Fatalf("upload: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Submit
	w, job := doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/submit", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if job["batchId"] != "batch_1" {
		t.Errorf("submit: expected batch_1, got %v", job["batchId"])
	}

	// Session landed in results
	w, snap = doJSON(t, r, http.MethodGet, "/api/v1/sessions/"+id, nil)
	if w.Code != http.StatusOK || snap["step"] != "results" {
		t.Errorf("expected results step, got %d %v", w.Code, snap["step"])
	}

	// Reset returns to the first step and clears the job
	w, snap = doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/reset", nil)
	if w.Code != http.StatusOK || snap["step"] != "select_template" {
		t.Errorf("reset: expected select_template, got %d %v", w.Code, snap["step"])
	}
	if _, hasJob := snap["job"]; hasJob {
		t.Error("reset: job must be cleared")
	}
}

func TestSessionNotFound(t *testing.T) {
	r, _ := newTestRouter(nil)
	w, body := doJSON(t, r, http.MethodGet, "/api/v1/sessions/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if body["kind"] != "not_found" {
		t.Errorf("expected kind not_found, got %v", body["kind"])
	}
}

func TestSelectTemplateOutOfStep(t *testing.T) {
	r, _ := newTestRouter(nil)
	_, created := doJSON(t, r, http.MethodPost, "/api/v1/sessions", nil)
	id := created["id"].(string)

	doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/template",
		map[string]string{"templateId": "invoice"})

	// Second selection after advancing is a step violation
	w, body := doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/template",
		map[string]string{"templateId": "invoice"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	if body["kind"] != "conflict" {
		t.Errorf("expected kind conflict, got %v", body["kind"])
	}
}

func TestUploadRejectsNonCSV(t *testing.T) {
	r, _ := newTestRouter(nil)
	_, created := doJSON(t, r, http.MethodPost, "/api/v1/sessions", nil)
	id := created["id"].(string)
	doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/template",
		map[string]string{"templateId": "invoice"})

	w := uploadCSV(t, r, id, "people.xlsx")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	var body map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["kind"] != "validation" {
		t.Errorf("expected kind validation, got %v", body["kind"])
	}
}

func TestSubmitFailureSurfacesKind(t *testing.T) {
	r, _ := newTestRouter(&domain.ContractViolation{Field: "batchId"})
	_, created := doJSON(t, r, http.MethodPost, "/api/v1/sessions", nil)
	id := created["id"].(string)
	doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/template",
		map[string]string{"templateId": "invoice"})
	uploadCSV(t, r, id, "people.csv")

	w, body := doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/submit", nil)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", w.Code, w.Body.String())
	}
	if body["kind"] != "contract_violation" {
		t.Errorf("expected kind contract_violation, got %v", body["kind"])
	}

	// The failure is recorded on the session snapshot too
	_, snap := doJSON(t, r, http.MethodGet, "/api/v1/sessions/"+id, nil)
	if snap["step"] != "results" {
		t.Errorf("expected results step after failed submit, got %v", snap["step"])
	}
	if snap["errorKind"] != "contract_violation" {
		t.Errorf("expected errorKind contract_violation, got %v", snap["errorKind"])
	}
}

func TestCatalogQueryParams(t *testing.T) {
	r, _ := newTestRouter(nil)
	_, created := doJSON(t, r, http.MethodPost, "/api/v1/sessions", nil)
	id := created["id"].(string)

	w, page := doJSON(t, r, http.MethodGet, "/api/v1/sessions/"+id+"/catalog?type=pdf&sort=name&dir=desc", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if page["totalCount"] != float64(1) {
		t.Errorf("expected totalCount 1, got %v", page["totalCount"])
	}

	// A filter with no matches still answers with an empty page
	w, page = doJSON(t, r, http.MethodGet, "/api/v1/sessions/"+id+"/catalog?type=email", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if page["totalCount"] != float64(0) {
		t.Errorf("expected totalCount 0, got %v", page["totalCount"])
	}
}
