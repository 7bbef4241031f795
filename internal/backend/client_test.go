package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/marco/formflow/internal/domain"
)

func TestListTemplates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forms/templates" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"templates":[
			{"id":"invoice","name":"Invoice","type":"pdf","description":"Monthly invoice","lastModified":"2025-03-18"},
			{"id":"welcome","name":"Welcome","type":"email","description":"Welcome mail","lastModified":"2025-01-02"}
		]}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	templates, err := client.ListTemplates(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(templates) != 2 {
		t.Fatalf("expected 2 templates, got %d", len(templates))
	}
	if templates[0].ID != "invoice" || templates[0].Type != domain.TemplateTypePDF {
		t.Errorf("unexpected first template: %+v", templates[0])
	}
}

func TestPreviewCSVSendsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forms/preview-csv" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing multipart file: %v", err)
		}
		defer file.Close()
		if header.Filename != "people.csv" {
			t.Errorf("unexpected file name %q", header.Filename)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"headers":["name","email"],"rows":[["Ada","ada@example.com"]]}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	headers, rows, err := client.PreviewCSV(context.Background(), "people.csv", []byte("name,email\nAda,ada@example.com\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(headers) != 2 || headers[0] != "name" {
		t.Errorf("unexpected headers: %v", headers)
	}
	if len(rows) != 1 || rows[0][0] != "Ada" {
		t.Errorf("unexpected rows: %v", rows)
	}
}

func TestProcessSendsFormType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.FormValue("formType"); got != "invoice" {
			t.Errorf("expected formType=invoice, got %q", got)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Fatalf("missing multipart file: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":true,"batchId":"batch_1","successCount":3,"successRate":"100%",
			"files":[{"name":"doc1.pdf","size":"12.34 KB","date":"2025-03-18"}]}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	result, err := client.Process(context.Background(), "invoice", "people.csv", []byte("a,b\n1,2\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.BatchID != "batch_1" || result.SuccessCount != 3 || result.SuccessRate != "100%" {
		t.Errorf("unexpected result: %+v", result)
	}
	if len(result.Files) != 1 || result.Files[0].Name != "doc1.pdf" {
		t.Errorf("unexpected files: %+v", result.Files)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "decodable error payload becomes rejection",
			status: http.StatusBadRequest,
			body:   `{"error":"Unsupported form type"}`,
			check: func(t *testing.T, err error) {
				var rejected *domain.BackendRejected
				if !errors.As(err, &rejected) {
					t.Fatalf("expected BackendRejected, got %T: %v", err, err)
				}
				if rejected.Message != "Unsupported form type" {
					t.Errorf("message not carried verbatim: %q", rejected.Message)
				}
				if rejected.Status != http.StatusBadRequest {
					t.Errorf("unexpected status %d", rejected.Status)
				}
			},
		},
		{
			name:   "server error with payload is still a rejection",
			status: http.StatusInternalServerError,
			body:   `{"error":"Processing failed"}`,
			check: func(t *testing.T, err error) {
				if !domain.IsBackendRejected(err) {
					t.Fatalf("expected BackendRejected, got %T: %v", err, err)
				}
			},
		},
		{
			name:   "undecodable body is a transport failure",
			status: http.StatusBadGateway,
			body:   `<html>upstream unavailable</html>`,
			check: func(t *testing.T, err error) {
				if !domain.IsNetworkFailure(err) {
					t.Fatalf("expected NetworkFailure, got %T: %v", err, err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			client := NewClient(srv.URL)
			_, err := client.ListTemplates(context.Background())
			if err == nil {
				t.Fatal("expected an error")
			}
			tt.check(t, err)
		})
	}
}

func TestFetchDocumentBustsCaches(t *testing.T) {
	var tokens []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forms/preview" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("formType") != "invoice" || q.Get("raw") != "true" {
			t.Errorf("unexpected query %v", q)
		}
		token := q.Get("_t")
		if token == "" {
			t.Error("missing cache-bust token")
		}
		tokens = append(tokens, token)
		w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	req := domain.PreviewRequest{
		Kind:       domain.PreviewKindDocument,
		Provenance: domain.ProvenanceTemplate,
		TemplateID: "invoice",
	}

	for i := 0; i < 2; i++ {
		rc, err := client.FetchDocument(context.Background(), req)
		if err != nil {
			t.Fatalf("fetch %d failed: %v", i, err)
		}
		body, _ := io.ReadAll(rc)
		rc.Close()
		if string(body) != "%PDF-1.4" {
			t.Errorf("unexpected body %q", body)
		}
	}

	if len(tokens) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(tokens))
	}
	if tokens[0] == tokens[1] {
		t.Errorf("cache-bust token repeated: %q", tokens[0])
	}
}

func TestFetchDocumentGeneratedProvenance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forms/preview-filled" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("file") != "doc1.pdf" || q.Get("batchId") != "batch_1" {
			t.Errorf("unexpected query %v", q)
		}
		w.Write([]byte("bytes"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	rc, err := client.FetchDocument(context.Background(), domain.PreviewRequest{
		Kind:       domain.PreviewKindDocument,
		Provenance: domain.ProvenanceGenerated,
		FileName:   "doc1.pdf",
		BatchID:    "batch_1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rc.Close()
}

func TestFetchEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forms/preview-email" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("templateId") != "welcome" {
			t.Errorf("unexpected query %v", r.URL.Query())
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"subject":"Welcome!","body":"<p>Hi</p>","isHtml":true,
			"from":"noreply@example.com","to":"ada@example.com","attachments":["terms.pdf"]}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	email, err := client.FetchEmail(context.Background(), domain.PreviewRequest{
		Kind:       domain.PreviewKindEmail,
		Provenance: domain.ProvenanceTemplate,
		TemplateID: "welcome",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if email.Subject != "Welcome!" || !email.IsHTML {
		t.Errorf("unexpected email: %+v", email)
	}
	if len(email.Attachments) != 1 || email.Attachments[0] != "terms.pdf" {
		t.Errorf("unexpected attachments: %v", email.Attachments)
	}
	if email.Fallback {
		t.Error("successful fetch must not be marked as fallback")
	}
}

func TestDownloadArchive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forms/download-all" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("batchId") != "batch_1" {
			t.Errorf("unexpected query %v", r.URL.Query())
		}
		w.Header().Set("Content-Type", "application/zip")
		w.Write([]byte("PK\x03\x04"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	rc, err := client.DownloadArchive(context.Background(), "batch_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rc.Close()

	body, _ := io.ReadAll(rc)
	if string(body[:2]) != "PK" {
		t.Errorf("unexpected archive bytes %q", body)
	}
}
