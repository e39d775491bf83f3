package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mercadia/orderdesk/internal/fault"
	"github.com/mercadia/orderdesk/internal/models"
	"github.com/mercadia/orderdesk/internal/orders"
	"github.com/mercadia/orderdesk/internal/session"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// writeError maps the error taxonomy onto HTTP responses. Not-found and
// invalid-state errors carry their specific message; anything else is a
// dependency failure whose cause is logged, never exposed.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, fault.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, fault.ErrInvalidState):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// handleCleanupSweep closes all expired sessions in one batch.
func handleCleanupSweep(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now().UTC()
		closed, err := session.Sweep(db, now)
		if err != nil {
			writeError(c, err)
			return
		}
		rep, err := session.Report(db, now)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":         true,
			"sessions_closed": closed,
			"timestamp":       now.Format(time.RFC3339),
			"status_counts":   rep.StatusCounts,
		})
	}
}

// handleCleanupReport reports expiry state without writing anything.
func handleCleanupReport(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now().UTC()
		rep, err := session.Report(db, now)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"expired_sessions_count": rep.ExpiredCount,
			"status_counts":          rep.StatusCounts,
			"timestamp":              now.Format(time.RFC3339),
		})
	}
}

// handleSessionCancel closes a session on user request.
func handleSessionCancel(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("id")
		if err := session.Cancel(db, distributorID(c), sessionID, time.Now().UTC()); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"session_id": sessionID,
			"status":     models.SessionClosed,
			"cancelled":  true,
		})
	}
}

// handleSessionClose finalizes a session into an order.
func handleSessionClose(builder *orders.Builder) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("id")
		res, err := builder.Close(distributorID(c), sessionID, time.Now().UTC())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":       true,
			"order_created": true,
			"order_id":      res.OrderID,
			"session_id":    res.SessionID,
			"total_items":   res.TotalItems,
			"total_amount":  res.TotalAmount,
		})
	}
}

// sessionItemView is the wire shape of one active session item.
type sessionItemView struct {
	ID             uint     `json:"id"`
	SequenceNumber int      `json:"sequence_number"`
	ProductName    string   `json:"product_name"`
	Quantity       float64  `json:"quantity"`
	ProductUnit    string   `json:"product_unit"`
	UnitPrice      *float64 `json:"unit_price"`
	LineTotal      *float64 `json:"line_total"`
	AIConfidence   float64  `json:"ai_confidence"`
	OriginalText   string   `json:"original_text"`
}

// handleSessionGet returns a session with its active items.
func handleSessionGet(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := session.Get(db, distributorID(c), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}

		items := make([]sessionItemView, len(sess.Items))
		for i, it := range sess.Items {
			items[i] = sessionItemView{
				ID:             it.ID,
				SequenceNumber: it.SequenceNumber,
				ProductName:    it.ProductName,
				Quantity:       it.Quantity,
				ProductUnit:    it.ProductUnit,
				UnitPrice:      it.UnitPrice,
				LineTotal:      it.LineTotal,
				AIConfidence:   it.AIConfidence,
				OriginalText:   it.OriginalText,
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"session_id":           sess.ID,
			"conversation_id":      sess.ConversationID,
			"status":               sess.Status,
			"started_at":           sess.StartedAt.Format(time.RFC3339),
			"last_activity_at":     sess.LastActivityAt.Format(time.RFC3339),
			"expires_at":           sess.ExpiresAt.Format(time.RFC3339),
			"total_messages_count": sess.TotalMessagesCount,
			"confidence_score":     sess.ConfidenceScore,
			"items":                items,
		})
	}
}
