package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mercadia/orderdesk/internal/orders"
	"gorm.io/gorm"
)

// registerRoutes sets up all API routes on the gin router.
func registerRoutes(router *gin.Engine, db *gorm.DB, builder *orders.Builder) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// The cleanup sweep is invoked by a scheduler, not by a distributor, so
	// it is not tenant-scoped.
	sessions := router.Group("/order-sessions")
	sessions.POST("/cleanup", handleCleanupSweep(db))
	sessions.GET("/cleanup", handleCleanupReport(db))

	scoped := sessions.Group("", requireDistributor())
	scoped.GET("/:id", handleSessionGet(db))
	scoped.POST("/:id/cancel", handleSessionCancel(db))
	scoped.POST("/:id/close", handleSessionClose(builder))

	ordersGroup := router.Group("/orders", requireDistributor())
	ordersGroup.POST("/consolidate", handleConsolidate(db))
	ordersGroup.PATCH("/:id/products/:productID", handleProductUpdate(db))
	ordersGroup.DELETE("/:id/products/:productID", handleProductDelete(db))
}
