package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// distributorHeader identifies the tenant making the request. It is set by
// the auth gateway in front of this service; every scoped operation threads
// it through explicitly rather than reading any process-wide default.
const distributorHeader = "X-Distributor-ID"

// requireDistributor rejects requests without a distributor id.
func requireDistributor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(distributorHeader) == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "missing " + distributorHeader + " header",
			})
			return
		}
		c.Next()
	}
}

// distributorID returns the tenant id for the current request.
func distributorID(c *gin.Context) string {
	return c.GetHeader(distributorHeader)
}
