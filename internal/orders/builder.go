// Package orders turns collection sessions into finalized orders, keeps
// every order's total in step with its line items, and consolidates
// existing orders. The backing store offers no multi-row transactions for
// these flows, so multi-step writes compensate explicitly instead of
// rolling back.
package orders

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mercadia/orderdesk/internal/fault"
	"github.com/mercadia/orderdesk/internal/models"
	"github.com/mercadia/orderdesk/internal/session"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Builder closes sessions into orders.
type Builder struct {
	db            *gorm.DB
	conversations ConversationResolver
}

// NewBuilder creates a Builder. If conversations is nil, a store-backed
// resolver is used.
func NewBuilder(db *gorm.DB, conversations ConversationResolver) *Builder {
	if conversations == nil {
		conversations = NewConversationResolver(db)
	}
	return &Builder{db: db, conversations: conversations}
}

// CloseResult summarizes a successful close.
type CloseResult struct {
	OrderID     string
	SessionID   string
	TotalItems  int
	TotalAmount float64
}

// Close finalizes a session into an order:
//
//  1. Load the session, its conversation, and its active items.
//  2. Claim the session by moving it to REVIEWING, guarded on its current
//     status so a concurrent close loses cleanly.
//  3. Insert the order with the computed total, then bulk-insert one
//     product per item.
//  4. Close the session and append an ORDER_CREATED event.
//
// If the product insert fails the order is deleted again and the session is
// left at REVIEWING; a later retry resumes that claim and re-attempts
// creation. If the final session close fails, the order stands as
// the source of truth: a warning is logged and the close reports success.
func (b *Builder) Close(distributorID, sessionID string, now time.Time) (*CloseResult, error) {
	var sess models.OrderSession
	err := b.db.Where("id = ? AND distributor_id = ?", sessionID, distributorID).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("orders: close session %s: %w", sessionID, fault.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("orders: close session %s: %w", sessionID, err)
	}
	if sess.Status == models.SessionClosed {
		return nil, fmt.Errorf("orders: close session %s: already closed: %w", sessionID, fault.ErrInvalidState)
	}

	// A prior attempt may have created the order and died before closing
	// the session. Finish that attempt instead of creating a duplicate.
	res, found, err := b.finishInterrupted(&sess, now)
	if err != nil {
		return nil, fmt.Errorf("orders: close session %s: check prior attempt: %w", sessionID, err)
	}
	if found {
		return res, nil
	}

	var items []models.OrderSessionItem
	if err := b.db.Where("session_id = ? AND item_status = ?", sessionID, models.ItemActive).
		Order("sequence_number ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("orders: close session %s: load items: %w", sessionID, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("orders: close session %s: no active items: %w", sessionID, fault.ErrInvalidState)
	}

	conv, err := b.conversations.Resolve(distributorID, sess.ConversationID)
	if err != nil {
		return nil, err
	}

	// Claim the session. The status guard makes the check-then-claim a
	// single conditional write, so only one concurrent close can win. A
	// session already at REVIEWING with no order for it is a compensated
	// prior attempt (the order was deleted, the claim was not released);
	// that claim is ours to resume, so no write is needed.
	if sess.Status != models.SessionReviewing {
		claim := b.db.Model(&models.OrderSession{}).
			Where("id = ? AND status IN ?", sessionID,
				[]string{models.SessionActive, models.SessionCollecting}).
			Update("status", models.SessionReviewing)
		if claim.Error != nil {
			return nil, fmt.Errorf("orders: close session %s: claim: %w", sessionID, claim.Error)
		}
		if claim.RowsAffected == 0 {
			return nil, fmt.Errorf("orders: close session %s: claimed by concurrent close: %w", sessionID, fault.ErrInvalidState)
		}
	}

	total := decimal.Zero
	for _, it := range items {
		total = total.Add(decimal.NewFromFloat(linePrice(it.Quantity, it.UnitPrice, it.LineTotal)))
	}
	totalAmount, _ := total.Round(2).Float64()

	convID := sess.ConversationID
	order := models.Order{
		ID:             uuid.NewString(),
		CustomerID:     conv.CustomerID,
		DistributorID:  distributorID,
		ConversationID: &convID,
		Channel:        conv.Channel,
		Status:         models.OrderPendingReview,
		ReceivedDate:   now,
		ReceivedTime:   now.Format("15:04:05"),
		TotalAmount:    totalAmount,
		AdditionalComment: fmt.Sprintf("Auto-generated from chat session: %d items across %d messages",
			len(items), sess.TotalMessagesCount),
		AIGenerated:       true,
		AIConfidence:      sess.ConfidenceScore,
		AISourceMessageID: firstMessageID(sess.CollectedMessageIDs),
		RequiresReview:    true,
		IsConsolidated:    true,
		OrderSessionID:    &sess.ID,
	}
	if err := b.db.Create(&order).Error; err != nil {
		return nil, fmt.Errorf("orders: close session %s: create order: %w", sessionID, err)
	}

	products := make([]models.OrderProduct, len(items))
	for i, it := range items {
		products[i] = models.OrderProduct{
			OrderID:            order.ID,
			ProductName:        it.ProductName,
			Quantity:           it.Quantity,
			ProductUnit:        it.ProductUnit,
			UnitPrice:          derefOrZero(it.UnitPrice),
			LinePrice:          linePrice(it.Quantity, it.UnitPrice, it.LineTotal),
			AIExtracted:        true,
			AIConfidence:       it.AIConfidence,
			AIOriginalText:     it.OriginalText,
			SuggestedProductID: it.SuggestedProductID,
			MatchingConfidence: it.MatchingConfidence,
			LineOrder:          i + 1,
		}
	}
	if err := b.db.Create(&products).Error; err != nil {
		// Compensate: remove the order so no half-built order is visible.
		// The session stays at REVIEWING.
		if delErr := b.db.Delete(&models.Order{}, "id = ?", order.ID).Error; delErr != nil {
			log.Warn().Err(delErr).Str("order_id", order.ID).
				Msg("close: compensation delete failed, orphan order remains")
		}
		return nil, fmt.Errorf("orders: close session %s: insert products: %w", sessionID, err)
	}

	closeRes := b.db.Model(&models.OrderSession{}).
		Where("id = ? AND status = ?", sessionID, models.SessionReviewing).
		Updates(map[string]interface{}{
			"status":    models.SessionClosed,
			"closed_at": now,
		})
	if closeRes.Error != nil {
		// The order and its products already exist and are the source of
		// truth; the session is merely stuck at REVIEWING.
		log.Warn().Err(closeRes.Error).Str("session_id", sessionID).
			Msg("close: session close failed after order creation")
	}

	if err := session.AppendEvent(b.db, sessionID, models.EventOrderCreated, map[string]interface{}{
		"order_id":   order.ID,
		"item_count": len(items),
		"total":      totalAmount,
	}, true); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("close: event append failed")
	}

	return &CloseResult{
		OrderID:     order.ID,
		SessionID:   sessionID,
		TotalItems:  len(items),
		TotalAmount: totalAmount,
	}, nil
}

// finishInterrupted completes a close attempt that created its order but
// never closed the session. Returns found=true with the result when a prior
// order for this session exists. A lookup failure is surfaced rather than
// treated as "no prior order", since falling through would create a
// duplicate exactly when the store is flaky.
func (b *Builder) finishInterrupted(sess *models.OrderSession, now time.Time) (*CloseResult, bool, error) {
	var existing models.Order
	err := b.db.Where("order_session_id = ?", sess.ID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if sess.Status != models.SessionClosed {
		res := b.db.Model(&models.OrderSession{}).
			Where("id = ? AND status != ?", sess.ID, models.SessionClosed).
			Updates(map[string]interface{}{
				"status":    models.SessionClosed,
				"closed_at": now,
			})
		if res.Error != nil {
			log.Warn().Err(res.Error).Str("session_id", sess.ID).
				Msg("close: finishing interrupted attempt, session close failed")
		}
	}

	var count int64
	b.db.Model(&models.OrderProduct{}).Where("order_id = ?", existing.ID).Count(&count)

	log.Info().Str("session_id", sess.ID).Str("order_id", existing.ID).
		Msg("close: returning order from interrupted prior attempt")

	return &CloseResult{
		OrderID:     existing.ID,
		SessionID:   sess.ID,
		TotalItems:  int(count),
		TotalAmount: existing.TotalAmount,
	}, true, nil
}

// firstMessageID extracts the first collected message id from the stored
// JSON list, or nil when none were recorded.
func firstMessageID(raw string) *string {
	if raw == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil || len(ids) == 0 {
		return nil
	}
	return &ids[0]
}

func derefOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
