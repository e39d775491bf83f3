package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mercadia/orderdesk/internal/orders"
	"gorm.io/gorm"
)

// consolidateRequest is the body of POST /orders/consolidate.
type consolidateRequest struct {
	OrderIDs     []string `json:"order_ids" binding:"required"`
	ReceivedDate string   `json:"received_date" binding:"required"` // "2006-01-02"
	DeliveryDate string   `json:"delivery_date"`
}

// handleConsolidate merges several existing orders into one new order.
func handleConsolidate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req consolidateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		receivedDate, err := time.Parse("2006-01-02", req.ReceivedDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "received_date must be YYYY-MM-DD"})
			return
		}
		var deliveryDate *time.Time
		if req.DeliveryDate != "" {
			d, err := time.Parse("2006-01-02", req.DeliveryDate)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "delivery_date must be YYYY-MM-DD"})
				return
			}
			deliveryDate = &d
		}

		res, err := orders.Consolidate(db, distributorID(c), req.OrderIDs, receivedDate, deliveryDate, time.Now().UTC())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":       true,
			"order_id":      res.OrderID,
			"source_orders": res.SourceCount,
			"total_items":   res.TotalItems,
			"total_amount":  res.TotalAmount,
		})
	}
}

// productUpdateRequest is the body of PATCH /orders/:id/products/:productID.
// Absent fields are left untouched.
type productUpdateRequest struct {
	ProductName        *string  `json:"product_name"`
	Quantity           *float64 `json:"quantity"`
	ProductUnit        *string  `json:"product_unit"`
	UnitPrice          *float64 `json:"unit_price"`
	LinePrice          *float64 `json:"line_price"`
	SuggestedProductID *string  `json:"suggested_product_id"`
	MatchingConfidence *float64 `json:"matching_confidence"`
}

// handleProductUpdate applies a partial line-item update and reconciles the
// order total.
func handleProductUpdate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, ok := parseProductID(c)
		if !ok {
			return
		}
		var req productUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		product, total, err := orders.UpdateProduct(db, distributorID(c), c.Param("id"), productID, orders.ProductUpdate{
			ProductName:        req.ProductName,
			Quantity:           req.Quantity,
			ProductUnit:        req.ProductUnit,
			UnitPrice:          req.UnitPrice,
			LinePrice:          req.LinePrice,
			SuggestedProductID: req.SuggestedProductID,
			MatchingConfidence: req.MatchingConfidence,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"product_id":   product.ID,
			"line_price":   product.LinePrice,
			"total_amount": total,
		})
	}
}

// handleProductDelete removes a line item and reconciles the order total.
func handleProductDelete(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, ok := parseProductID(c)
		if !ok {
			return
		}
		total, err := orders.DeleteProduct(db, distributorID(c), c.Param("id"), productID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"deleted":      true,
			"total_amount": total,
		})
	}
}

func parseProductID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("productID"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return 0, false
	}
	return uint(id), true
}
