package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	handler "payment-confirmation-backend/internal/handlers"
	"payment-confirmation-backend/internal/metrics"
)

func RegisterRoutes(r *gin.Engine, payments *handler.PaymentHandler, autoChecks *handler.AutoCheckHandler, m *metrics.Metrics) {
	if m != nil {
		r.GET("/metrics", m.Handler())
	}

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Payment flow
	api.POST("/transfer-notification", payments.ReceiveNotification)
	api.POST("/verify-payment", payments.VerifyPayment)
	api.GET("/stats", payments.Stats)

	tx := api.Group("/transfers")
	tx.GET("", payments.ListTransfers)
	tx.GET("/:id", payments.GetTransfer)

	// Auto-check registrations and run history
	ac := api.Group("/auto-checks")
	{
		ac.POST("", autoChecks.AddEntry)
		ac.GET("", autoChecks.ListEntries)
		ac.PATCH("/:id/toggle", autoChecks.ToggleEntry)
		ac.DELETE("/:id", autoChecks.DeleteEntry)
		ac.POST("/run", autoChecks.RunNow)
		ac.GET("/runs", autoChecks.ListRuns)
	}
}
