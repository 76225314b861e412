package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"check-review-gateway/internal/config"
	handler "check-review-gateway/internal/handlers"
	"check-review-gateway/internal/metrics"
	"check-review-gateway/internal/repository"
	"check-review-gateway/internal/services/review"
)

// Dependencies are what the gateway routes are built from. DB is optional;
// without it submission audits only go to the log.
type Dependencies struct {
	Upstream handler.Upstream
	Sessions *review.Registry
	DB       *gorm.DB
	Review   config.ReviewConfig
	Logger   zerolog.Logger
}

func RegisterRoutes(r *gin.Engine, deps Dependencies) {
	var audit review.AuditRecorder = review.NewLogAuditRecorder(deps.Logger)
	if deps.DB != nil {
		audit = repository.NewSubmissionAuditRepository(deps.DB)
	}

	reviewHandler := handler.NewReviewHandler(deps.Upstream, deps.Sessions, audit, review.Settings{
		ModifiedHold:     deps.Review.ModifiedHold,
		RecheckOnConfirm: deps.Review.RecheckOnConfirm,
		IndexPath:        deps.Review.IndexPath,
	}, deps.Logger)

	r.Use(RequestLogger(deps.Logger), metrics.GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": deps.Sessions.Len()})
	})

	// Review sessions
	sessions := api.Group("/sessions")
	sessions.POST("", reviewHandler.CreateSession)
	sessions.GET("/:sessionId", reviewHandler.GetSession)
	sessions.PUT("/:sessionId/checks/:checkId", reviewHandler.SaveFields)
	sessions.GET("/:sessionId/checks/:checkId/contacts", reviewHandler.SearchContacts)
	sessions.POST("/:sessionId/checks/:checkId/contact", reviewHandler.SelectContact)
	sessions.POST("/:sessionId/submit", reviewHandler.Submit)
	sessions.POST("/:sessionId/submit/confirm", reviewHandler.ConfirmSubmit)
	sessions.POST("/:sessionId/submit/cancel", reviewHandler.CancelSubmit)

	// Batches
	api.POST("/upload", reviewHandler.Upload)
	batches := api.Group("/batches")
	{
		batches.GET("", reviewHandler.ListBatches)
		batches.DELETE("/:batchId", reviewHandler.DeleteBatch)
		batches.GET("/:batchId/status", reviewHandler.StreamStatus)
		batches.GET("/:batchId/submissions", reviewHandler.ListSubmissions)
	}
}
