package api

import (
	"github.com/gin-gonic/gin"
	"github.com/marco/formflow/internal/api/handler"
	"github.com/marco/formflow/internal/api/middleware"
	"github.com/marco/formflow/internal/backend"
	"github.com/marco/formflow/internal/config"
	"github.com/marco/formflow/internal/download"
	"github.com/marco/formflow/internal/repository"
	"github.com/marco/formflow/internal/wizard"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	cfg *config.Config,
	manager *wizard.Manager,
	client *backend.Client,
	orchestrator *download.Orchestrator,
	batchRepo *repository.BatchRepository,
) *gin.Engine {
	// Set Gin mode
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	}))

	// Create handlers
	healthHandler := handler.NewHealthHandler(Version)
	sessionHandler := handler.NewSessionHandler(manager)
	previewHandler := handler.NewPreviewHandler(manager, client)
	downloadHandler := handler.NewDownloadHandler(manager, orchestrator)
	catalogHandler := handler.NewCatalogHandler(client)
	historyHandler := handler.NewHistoryHandler(batchRepo)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Wizard sessions
		v1.POST("/sessions", sessionHandler.Create)
		v1.GET("/sessions/:id", sessionHandler.Get)
		v1.DELETE("/sessions/:id", previewHandler.ReleaseSession, sessionHandler.Delete)

		// Template selection
		v1.GET("/sessions/:id/catalog", sessionHandler.Catalog)
		v1.POST("/sessions/:id/template", sessionHandler.SelectTemplate)

		// Dataset upload
		v1.POST("/sessions/:id/dataset", sessionHandler.UploadDataset)
		v1.DELETE("/sessions/:id/dataset", sessionHandler.RemoveDataset)

		// Processing
		v1.POST("/sessions/:id/submit", sessionHandler.Submit)
		v1.POST("/sessions/:id/return-to-upload", sessionHandler.ReturnToUpload)
		v1.POST("/sessions/:id/reset", previewHandler.ReleaseSession, sessionHandler.Reset)

		// Previews
		v1.GET("/sessions/:id/preview", previewHandler.Preview)
		v1.DELETE("/sessions/:id/preview", previewHandler.Dismiss)

		// Downloads
		v1.POST("/sessions/:id/download", downloadHandler.Download)
		v1.GET("/notifications", downloadHandler.Notifications)

		// Catalog metadata
		v1.GET("/catalog/types", catalogHandler.Types)

		// Batch history
		v1.GET("/history", historyHandler.List)
		v1.GET("/history/:batchId", historyHandler.Get)
	}

	return r
}
