package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/marco/formflow/internal/domain"
	"github.com/marco/formflow/internal/download"
	"github.com/marco/formflow/internal/preview"
	"github.com/marco/formflow/internal/wizard"
)

// respondError maps the error taxonomy onto HTTP. Validation and
// backend rejections are client-correctable (400); guard violations
// and stale results are conflicts (409); contract violations and
// transport failures are upstream problems (502).
func respondError(c *gin.Context, err error) {
	var te *wizard.TransitionError

	switch {
	case errors.Is(err, wizard.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "kind": "not_found"})
	case errors.As(err, &te),
		errors.Is(err, wizard.ErrSubmissionInFlight),
		errors.Is(err, wizard.ErrNoTemplate),
		errors.Is(err, wizard.ErrNoDataset),
		errors.Is(err, download.ErrNoBatch),
		errors.Is(err, preview.ErrStale):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "kind": "conflict"})
	case domain.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "validation"})
	case domain.IsBackendRejected(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "backend_rejected"})
	case domain.IsContractViolation(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "kind": "contract_violation"})
	case domain.IsNetworkFailure(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "kind": "network_failure"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "kind": "internal"})
	}
}
