package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/marco/formflow/internal/catalog"
	"github.com/marco/formflow/internal/ingest"
	"github.com/marco/formflow/internal/wizard"
)

// SessionHandler exposes wizard sessions over HTTP. Every route is a
// thin command mapping onto the session state machine; the handler
// holds no workflow state of its own.
type SessionHandler struct {
	manager *wizard.Manager
}

// NewSessionHandler creates a new session handler.
// Parameters:
//   - manager: wizard session manager.
// Returns:
//   - *SessionHandler: initialized handler.
func NewSessionHandler(manager *wizard.Manager) *SessionHandler {
	return &SessionHandler{manager: manager}
}

// Create handles POST /api/v1/sessions.
func (h *SessionHandler) Create(c *gin.Context) {
	s := h.manager.Create()
	c.JSON(http.StatusCreated, s.Snapshot())
}

// Get handles GET /api/v1/sessions/:id.
func (h *SessionHandler) Get(c *gin.Context) {
	s, err := h.manager.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

// Delete handles DELETE /api/v1/sessions/:id.
func (h *SessionHandler) Delete(c *gin.Context) {
	h.manager.Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// Catalog handles GET /api/v1/sessions/:id/catalog. Query parameters
// update the session's browsing state before the page is built, so
// filter mutations reset the page while sort changes do not.
func (h *SessionHandler) Catalog(c *gin.Context) {
	s, err := h.manager.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if t, ok := c.GetQuery("type"); ok {
		s.SetTypeFilter(t)
	}
	if q, ok := c.GetQuery("q"); ok {
		s.SetSearch(q)
	}
	if field, ok := c.GetQuery("sort"); ok {
		dir := catalog.Ascending
		if c.Query("dir") == string(catalog.Descending) {
			dir = catalog.Descending
		}
		s.ApplySort(catalog.SortField(field), dir)
	}
	if toggle, ok := c.GetQuery("toggle"); ok {
		s.SetSort(catalog.SortField(toggle))
	}
	if page, ok := c.GetQuery("page"); ok {
		s.SetPage(atoiOr(page, 1))
	}

	pageData, err := s.CatalogPage(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pageData)
}

// SelectTemplate handles POST /api/v1/sessions/:id/template.
func (h *SessionHandler) SelectTemplate(c *gin.Context) {
	s, err := h.manager.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	var req struct {
		TemplateID string `json:"templateId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if err := s.SelectTemplate(c.Request.Context(), req.TemplateID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

// UploadDataset handles POST /api/v1/sessions/:id/dataset. Multipart
// uploads from the file picker and from drag-and-drop hit this same
// route and the same validation sequence.
func (h *SessionHandler) UploadDataset(c *gin.Context) {
	s, err := h.manager.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot read uploaded file"})
		return
	}
	defer f.Close()

	dataset, err := s.AttachDataset(c.Request.Context(), ingest.File{
		Name:        fileHeader.Filename,
		Size:        fileHeader.Size,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Reader:      f,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"fileName": dataset.FileName,
		"headers":  dataset.Headers,
		"rows":     dataset.Rows,
		"rowCount": dataset.RowCount,
	})
}

// RemoveDataset handles DELETE /api/v1/sessions/:id/dataset.
func (h *SessionHandler) RemoveDataset(c *gin.Context) {
	s, err := h.manager.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	s.RemoveDataset()
	c.Status(http.StatusNoContent)
}

// Submit handles POST /api/v1/sessions/:id/submit.
func (h *SessionHandler) Submit(c *gin.Context) {
	s, err := h.manager.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	job, err := s.Submit(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// ReturnToUpload handles POST /api/v1/sessions/:id/return-to-upload,
// the explicit retry entry after a failed submission.
func (h *SessionHandler) ReturnToUpload(c *gin.Context) {
	s, err := h.manager.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if err := s.ReturnToUpload(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

// Reset handles POST /api/v1/sessions/:id/reset.
func (h *SessionHandler) Reset(c *gin.Context) {
	s, err := h.manager.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	s.Reset()
	c.JSON(http.StatusOK, s.Snapshot())
}

// atoiOr parses a positive integer, falling back on garbage.
func atoiOr(s string, fallback int) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return fallback
		}
		n = n*10 + int(r-'0')
	}
	if n == 0 {
		return fallback
	}
	return n
}
