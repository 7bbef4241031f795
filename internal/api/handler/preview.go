package handler

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/marco/formflow/internal/domain"
	"github.com/marco/formflow/internal/logger"
	"github.com/marco/formflow/internal/preview"
	"github.com/marco/formflow/internal/wizard"
)

// PreviewHandler serves artifact previews. Each session gets its own
// preview gateway so freshness tokens and the active document handle
// stay scoped to that session's wizard.
type PreviewHandler struct {
	manager *wizard.Manager
	fetcher preview.Fetcher

	mu       sync.Mutex
	gateways map[string]*preview.Gateway
}

// NewPreviewHandler creates a preview handler.
// Parameters:
//   - manager: wizard session manager.
//   - fetcher: backend preview fetcher.
// Returns:
//   - *PreviewHandler: initialized handler.
func NewPreviewHandler(manager *wizard.Manager, fetcher preview.Fetcher) *PreviewHandler {
	return &PreviewHandler{
		manager:  manager,
		fetcher:  fetcher,
		gateways: make(map[string]*preview.Gateway),
	}
}

// gateway returns the session's gateway, creating it on first use.
func (h *PreviewHandler) gateway(sessionID string) *preview.Gateway {
	h.mu.Lock()
	defer h.mu.Unlock()
	g, ok := h.gateways[sessionID]
	if !ok {
		g = preview.NewGateway(h.fetcher)
		h.gateways[sessionID] = g
	}
	return g
}

// Preview handles GET /api/v1/sessions/:id/preview. The target is
// addressed by query parameters; identifiers the session already holds
// (selected template, current batch) fill in when omitted.
func (h *PreviewHandler) Preview(c *gin.Context) {
	s, err := h.manager.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	req, err := h.buildRequest(c, s)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch req.Kind {
	case domain.PreviewKindEmail:
		h.email(c, s.ID, req)
	default:
		h.document(c, s.ID, req)
	}
}

// buildRequest assembles a PreviewRequest from query parameters and
// session state.
func (h *PreviewHandler) buildRequest(c *gin.Context, s *wizard.Session) (domain.PreviewRequest, error) {
	req := domain.PreviewRequest{
		Kind:       domain.PreviewKind(c.DefaultQuery("kind", string(domain.PreviewKindDocument))),
		Provenance: domain.Provenance(c.DefaultQuery("provenance", string(domain.ProvenanceTemplate))),
	}

	switch req.Provenance {
	case domain.ProvenanceTemplate:
		req.TemplateID = c.Query("templateId")
		if req.TemplateID == "" {
			if tpl, ok := s.Selected(); ok {
				req.TemplateID = tpl.ID
			}
		}
	case domain.ProvenanceGenerated:
		req.FileName = c.Query("file")
		if job, ok := s.Job(); ok {
			req.BatchID = job.BatchID
		}
	}

	return req, req.Validate()
}

// document streams a binary preview and releases the handle when the
// response is written.
func (h *PreviewHandler) document(c *gin.Context, sessionID string, req domain.PreviewRequest) {
	handle, err := h.gateway(sessionID).Document(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	defer handle.Close()

	c.Header("Cache-Control", "no-store")
	c.Header("Content-Type", documentContentType(req))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, handle); err != nil {
		logger.CtxWarn(c.Request.Context(), "Preview stream aborted: target=%s error=%v", req.Target(), err)
	}
}

// email responds with the structured rendering, or with the fallback
// record when the fetch fails persistently. A stale result is an error,
// not a fallback: the caller has already moved on.
func (h *PreviewHandler) email(c *gin.Context, sessionID string, req domain.PreviewRequest) {
	g := h.gateway(sessionID)
	rendered, err := g.Email(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, preview.ErrStale) {
			respondError(c, err)
			return
		}
		logger.CtxWarn(c.Request.Context(), "Email preview failed, serving fallback: target=%s error=%v", req.Target(), err)
		c.JSON(http.StatusOK, g.Fallback(req))
		return
	}
	c.JSON(http.StatusOK, rendered)
}

// Dismiss handles DELETE /api/v1/sessions/:id/preview, releasing the
// active document handle and invalidating in-flight fetches.
func (h *PreviewHandler) Dismiss(c *gin.Context) {
	h.mu.Lock()
	g, ok := h.gateways[c.Param("id")]
	h.mu.Unlock()
	if ok {
		g.Dismiss()
	}
	c.Status(http.StatusNoContent)
}

// ReleaseSession is middleware chained before session deletion and
// reset so the session's gateway never outlives its wizard state.
func (h *PreviewHandler) ReleaseSession(c *gin.Context) {
	id := c.Param("id")
	h.mu.Lock()
	g, ok := h.gateways[id]
	if ok {
		delete(h.gateways, id)
	}
	h.mu.Unlock()
	if ok {
		g.Dismiss()
	}
	c.Next()
}

// documentContentType picks a response content type from the target's
// extension. Unknown extensions stream as raw bytes.
func documentContentType(req domain.PreviewRequest) string {
	name := req.Target()
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", "":
		return "application/pdf"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
