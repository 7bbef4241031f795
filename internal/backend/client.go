package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/marco/formflow/internal/domain"
	"github.com/marco/formflow/internal/logger"
)

// Client wraps the form-processing backend's HTTP API. All responses
// are decoded into typed results; HTTP error payloads are mapped onto
// the shared error taxonomy. No timeouts are imposed: failure is only
// recognized on a definite transport or HTTP error.
type Client struct {
	http *resty.Client

	// cacheToken makes every preview URL unique so intermediaries can
	// never serve a previous batch's artifact for the same name.
	cacheToken atomic.Int64
}

// NewClient creates a backend client rooted at baseURL (e.g.
// "http://localhost:5000/api").
// Parameters:
//   - baseURL: backend API root, without a trailing slash.
// Returns:
//   - *Client: initialized client.
func NewClient(baseURL string) *Client {
	c := resty.New()
	c.SetBaseURL(baseURL)
	c.SetTimeout(0)
	c.SetHeader("Accept", "application/json")

	client := &Client{http: c}
	client.cacheToken.Store(time.Now().UnixNano())
	return client
}

// bust returns a fresh cache-defeating token. Tokens are strictly
// increasing within a process.
func (c *Client) bust() string {
	return strconv.FormatInt(c.cacheToken.Add(1), 10)
}

// mapError converts a non-2xx response into the error taxonomy: a
// decodable {error} payload becomes BackendRejected with the message
// carried verbatim, anything else is a NetworkFailure.
func mapError(op string, resp *resty.Response) error {
	var payload errorResponse
	if err := json.Unmarshal(resp.Body(), &payload); err == nil && payload.Error != "" {
		return &domain.BackendRejected{Status: resp.StatusCode(), Message: payload.Error}
	}
	return &domain.NetworkFailure{
		Op:  op,
		Err: fmt.Errorf("unexpected status %d", resp.StatusCode()),
	}
}

// netErr wraps a transport-level failure.
func netErr(op string, err error) error {
	return &domain.NetworkFailure{Op: op, Err: err}
}

// ListFormTypes fetches the selectable form type categories.
// Parameters:
//   - ctx: context for cancellation.
// Returns:
//   - []domain.FormType: available form types.
//   - error: non-nil on transport or backend failure.
func (c *Client) ListFormTypes(ctx context.Context) ([]domain.FormType, error) {
	var result formTypesResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/forms/types")
	if err != nil {
		return nil, netErr("list form types", err)
	}
	if !resp.IsSuccess() {
		return nil, mapError("list form types", resp)
	}
	return result.FormTypes, nil
}

// ListTemplates fetches the full template catalog.
// Parameters:
//   - ctx: context for cancellation.
// Returns:
//   - []domain.Template: catalog entries.
//   - error: non-nil on transport or backend failure.
func (c *Client) ListTemplates(ctx context.Context) ([]domain.Template, error) {
	var result templatesResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/forms/templates")
	if err != nil {
		return nil, netErr("list templates", err)
	}
	if !resp.IsSuccess() {
		return nil, mapError("list templates", resp)
	}
	logger.CtxDebug(ctx, "Fetched template catalog: count=%d", len(result.Templates))
	return result.Templates, nil
}

// PreviewCSV submits a dataset file for structured preview.
// Parameters:
//   - ctx: context for cancellation.
//   - fileName: original dataset file name.
//   - content: raw file bytes.
// Returns:
//   - []string: header row.
//   - [][]string: data rows.
//   - error: BackendRejected on 4xx, NetworkFailure otherwise.
func (c *Client) PreviewCSV(ctx context.Context, fileName string, content []byte) ([]string, [][]string, error) {
	var result previewCSVResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("file", fileName, bytes.NewReader(content)).
		SetResult(&result).
		Post("/forms/preview-csv")
	if err != nil {
		return nil, nil, netErr("preview csv", err)
	}
	if !resp.IsSuccess() {
		return nil, nil, mapError("preview csv", resp)
	}
	return result.Headers, result.Rows, nil
}

// Process submits a dataset and template pair for batch rendering. The
// returned descriptor is raw; callers enforce the batchId contract.
// Parameters:
//   - ctx: context for cancellation.
//   - templateID: template (form type) identifier.
//   - fileName: dataset file name.
//   - content: raw dataset bytes.
// Returns:
//   - *ProcessResult: raw batch descriptor.
//   - error: BackendRejected on 4xx, NetworkFailure otherwise.
func (c *Client) Process(ctx context.Context, templateID, fileName string, content []byte) (*ProcessResult, error) {
	var result ProcessResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("file", fileName, bytes.NewReader(content)).
		SetFormData(map[string]string{"formType": templateID}).
		SetResult(&result).
		Post("/forms/process")
	if err != nil {
		return nil, netErr("process batch", err)
	}
	if !resp.IsSuccess() {
		return nil, mapError("process batch", resp)
	}
	return &result, nil
}

// FetchDocument retrieves a binary document preview stream. The caller
// owns the returned reader and must close it.
// Parameters:
//   - ctx: context for cancellation.
//   - req: validated preview request of kind document.
// Returns:
//   - io.ReadCloser: document byte stream.
//   - error: non-nil on transport or backend failure.
func (c *Client) FetchDocument(ctx context.Context, req domain.PreviewRequest) (io.ReadCloser, error) {
	r := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetQueryParam("_t", c.bust()).
		SetHeader("Cache-Control", "no-store")

	var (
		resp *resty.Response
		err  error
		op   string
	)
	if req.Provenance == domain.ProvenanceTemplate {
		op = "preview template document"
		resp, err = r.
			SetQueryParam("formType", req.TemplateID).
			SetQueryParam("raw", "true").
			Get("/forms/preview")
	} else {
		op = "preview generated document"
		resp, err = r.
			SetQueryParam("file", req.FileName).
			SetQueryParam("batchId", req.BatchID).
			Get("/forms/preview-filled")
	}
	if err != nil {
		return nil, netErr(op, err)
	}
	if resp.StatusCode() >= 300 {
		defer resp.RawBody().Close()
		body, _ := io.ReadAll(resp.RawBody())
		var payload errorResponse
		if jsonErr := json.Unmarshal(body, &payload); jsonErr == nil && payload.Error != "" {
			return nil, &domain.BackendRejected{Status: resp.StatusCode(), Message: payload.Error}
		}
		return nil, &domain.NetworkFailure{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode())}
	}
	return resp.RawBody(), nil
}

// FetchEmail retrieves a structured email preview.
// Parameters:
//   - ctx: context for cancellation.
//   - req: validated preview request of kind email.
// Returns:
//   - *domain.EmailPreview: rendered email record.
//   - error: non-nil on transport or backend failure.
func (c *Client) FetchEmail(ctx context.Context, req domain.PreviewRequest) (*domain.EmailPreview, error) {
	var result emailPreviewResponse
	r := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		SetQueryParam("_t", c.bust()).
		SetHeader("Cache-Control", "no-store")

	var (
		resp *resty.Response
		err  error
		op   string
	)
	if req.Provenance == domain.ProvenanceTemplate {
		op = "preview template email"
		resp, err = r.
			SetQueryParam("templateId", req.TemplateID).
			Get("/forms/preview-email")
	} else {
		op = "preview generated email"
		resp, err = r.
			SetQueryParam("file", req.FileName).
			SetQueryParam("batchId", req.BatchID).
			Get("/forms/preview-processed-email")
	}
	if err != nil {
		return nil, netErr(op, err)
	}
	if !resp.IsSuccess() {
		return nil, mapError(op, resp)
	}
	return &domain.EmailPreview{
		Subject:     result.Subject,
		Body:        result.Body,
		IsHTML:      result.IsHTML,
		From:        result.From,
		To:          result.To,
		Date:        result.Date,
		Attachments: result.Attachments,
	}, nil
}

// DownloadFile retrieves one generated file. The caller owns the
// returned reader and must close it.
// Parameters:
//   - ctx: context for cancellation.
//   - fileName: generated file name.
//   - batchID: owning batch identifier.
// Returns:
//   - io.ReadCloser: file byte stream.
//   - error: non-nil on transport or backend failure.
func (c *Client) DownloadFile(ctx context.Context, fileName, batchID string) (io.ReadCloser, error) {
	return c.fetchBinary(ctx, "download file", "/forms/download", map[string]string{
		"file":    fileName,
		"batchId": batchID,
	})
}

// DownloadArchive retrieves the zip archive of a whole batch. The
// caller owns the returned reader and must close it.
// Parameters:
//   - ctx: context for cancellation.
//   - batchID: batch identifier.
// Returns:
//   - io.ReadCloser: archive byte stream.
//   - error: non-nil on transport or backend failure.
func (c *Client) DownloadArchive(ctx context.Context, batchID string) (io.ReadCloser, error) {
	return c.fetchBinary(ctx, "download archive", "/forms/download-all", map[string]string{
		"batchId": batchID,
	})
}

func (c *Client) fetchBinary(ctx context.Context, op, path string, params map[string]string) (io.ReadCloser, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		return nil, netErr(op, err)
	}
	if resp.StatusCode() >= 300 {
		defer resp.RawBody().Close()
		body, _ := io.ReadAll(resp.RawBody())
		var payload errorResponse
		if jsonErr := json.Unmarshal(body, &payload); jsonErr == nil && payload.Error != "" {
			return nil, &domain.BackendRejected{Status: resp.StatusCode(), Message: payload.Error}
		}
		return nil, &domain.NetworkFailure{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode())}
	}
	return resp.RawBody(), nil
}
