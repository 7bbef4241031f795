package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/marco/formflow/internal/repository"
	"gorm.io/gorm"
)

// HistoryHandler serves the persisted batch history.
type HistoryHandler struct {
	repo *repository.BatchRepository
}

// NewHistoryHandler creates a history handler.
func NewHistoryHandler(repo *repository.BatchRepository) *HistoryHandler {
	return &HistoryHandler{repo: repo}
}

// List handles GET /api/v1/history, newest batches first.
func (h *HistoryHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	records, err := h.repo.List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(records),
		"batches": records,
	})
}

// Get handles GET /api/v1/history/:batchId.
func (h *HistoryHandler) Get(c *gin.Context) {
	record, err := h.repo.GetByBatchID(c.Request.Context(), c.Param("batchId"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Batch not found"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}
