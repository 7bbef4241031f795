package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/marco/formflow/internal/domain"
)

// TypeLister lists the selectable template categories. Satisfied by
// backend.Client.
type TypeLister interface {
	ListFormTypes(ctx context.Context) ([]domain.FormType, error)
}

// CatalogHandler serves catalog data that is not scoped to a session.
type CatalogHandler struct {
	types TypeLister
}

// NewCatalogHandler creates a catalog handler.
func NewCatalogHandler(types TypeLister) *CatalogHandler {
	return &CatalogHandler{types: types}
}

// Types handles GET /api/v1/catalog/types.
func (h *CatalogHandler) Types(c *gin.Context) {
	types, err := h.types.ListFormTypes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"types": types})
}
