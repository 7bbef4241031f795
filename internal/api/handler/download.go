package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/marco/formflow/internal/download"
	"github.com/marco/formflow/internal/wizard"
)

// DownloadHandler triggers artifact downloads for a session's batch and
// exposes the notification feed the downloads report into.
type DownloadHandler struct {
	manager      *wizard.Manager
	orchestrator *download.Orchestrator
}

// NewDownloadHandler creates a download handler.
// Parameters:
//   - manager: wizard session manager.
//   - orchestrator: download orchestrator backed by the artifact sink.
// Returns:
//   - *DownloadHandler: initialized handler.
func NewDownloadHandler(manager *wizard.Manager, orchestrator *download.Orchestrator) *DownloadHandler {
	return &DownloadHandler{manager: manager, orchestrator: orchestrator}
}

// Download handles POST /api/v1/sessions/:id/download. With a file name
// in the body it saves that one artifact; without one it saves the
// whole batch archive.
func (h *DownloadHandler) Download(c *gin.Context) {
	s, err := h.manager.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	var req struct {
		File string `json:"file"`
		All  bool   `json:"all"`
	}
	// An empty body means "download everything".
	_ = c.ShouldBindJSON(&req)

	batchID := ""
	if job, ok := s.Job(); ok {
		batchID = job.BatchID
	}

	var location string
	if req.All || req.File == "" {
		location, err = h.orchestrator.DownloadAll(c.Request.Context(), batchID)
	} else {
		location, err = h.orchestrator.DownloadOne(c.Request.Context(), req.File, batchID)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"location": location})
}

// Notifications handles GET /api/v1/notifications, returning the
// currently visible download notices oldest first.
func (h *DownloadHandler) Notifications(c *gin.Context) {
	notices := h.orchestrator.Notices()
	if notices == nil {
		notices = []download.Notice{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notices})
}
