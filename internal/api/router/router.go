package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acme/catalog-console/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes.
// The admin client sends every path with a trailing slash, so routes are
// registered that way.
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "catalog-api-service",
		})
	})

	jobHandler := handler.NewJobHandler(deps)
	productHandler := handler.NewProductHandler(deps)
	webhookHandler := handler.NewWebhookHandler(deps)

	api := r.Group("/api")
	{
		upload := api.Group("/upload")
		{
			// POST /api/upload/ - Spool a CSV and start an import job
			upload.POST("/", jobHandler.Upload)

			// GET /api/upload/:id/progress/ - Poll job progress
			upload.GET("/:id/progress/", jobHandler.Progress)
		}

		products := api.Group("/products")
		{
			products.GET("/", productHandler.List)
			products.POST("/", productHandler.Create)
			products.GET("/:id/", productHandler.Get)
			products.PUT("/:id/", productHandler.Update)
			products.DELETE("/:id/", productHandler.Delete)

			// POST /api/products/bulk_delete/ - Start a bulk-delete job
			products.POST("/bulk_delete/", jobHandler.BulkDelete)
		}

		webhooks := api.Group("/webhooks")
		{
			webhooks.GET("/", webhookHandler.List)
			webhooks.POST("/", webhookHandler.Create)
			webhooks.PUT("/:id/", webhookHandler.Update)
			webhooks.DELETE("/:id/", webhookHandler.Delete)
			webhooks.POST("/:id/test/", webhookHandler.Test)
			webhooks.GET("/:id/logs/", webhookHandler.Logs)
		}
	}

	// Development-only probe into the raw progress store
	if deps.Environment != "production" && deps.Redis != nil {
		probeHandler := handler.NewProbeHandler(deps)
		r.GET("/__redis_probe", probeHandler.Probe)
	}

	return r
}
