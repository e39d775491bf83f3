package orders

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mercadia/orderdesk/internal/fault"
	"github.com/mercadia/orderdesk/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ConsolidateResult summarizes a successful consolidation.
type ConsolidateResult struct {
	OrderID     string
	SourceCount int
	TotalItems  int
	TotalAmount float64
}

// Consolidate merges the given orders into one new order with the requested
// dates. The new order copies its customer, channel, and conversation
// references from the template order: the candidate with the latest
// received date, ties broken by position in the caller's id list. Every
// line item is copied across and re-sequenced 1..N, then the total is
// reconciled and the originals are deleted.
//
// If copying the line items fails, the new order is deleted again and the
// originals are untouched. If deleting the originals fails after the new
// order is complete, a warning is logged and the consolidation still
// reports success; the originals remain as duplicates needing manual
// cleanup.
func Consolidate(db *gorm.DB, distributorID string, orderIDs []string, receivedDate time.Time, deliveryDate *time.Time, now time.Time) (*ConsolidateResult, error) {
	if len(orderIDs) == 0 {
		return nil, fmt.Errorf("orders: consolidate: no order ids given: %w", fault.ErrInvalidState)
	}

	// Load candidates in the caller's order; the tie-break below depends
	// on this ordering. The id list is a set: a repeated id would copy the
	// same products twice, so duplicates are dropped.
	seen := make(map[string]bool, len(orderIDs))
	candidates := make([]models.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		var o models.Order
		err := db.Where("id = ? AND distributor_id = ?", id, distributorID).First(&o).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("orders: consolidate: order %s: %w", id, fault.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("orders: consolidate: order %s: %w", id, err)
		}
		candidates = append(candidates, o)
	}

	template := candidates[0]
	for _, o := range candidates[1:] {
		if o.ReceivedDate.After(template.ReceivedDate) {
			template = o
		}
	}

	merged := models.Order{
		ID:                uuid.NewString(),
		CustomerID:        template.CustomerID,
		DistributorID:     distributorID,
		ConversationID:    template.ConversationID,
		Channel:           template.Channel,
		Status:            models.OrderPendingReview,
		ReceivedDate:      receivedDate,
		ReceivedTime:      now.Format("15:04:05"),
		DeliveryDate:      deliveryDate,
		TotalAmount:       0,
		AdditionalComment: fmt.Sprintf("Consolidated from %d orders", len(candidates)),
		RequiresReview:    true,
		IsConsolidated:    true,
	}
	if err := db.Create(&merged).Error; err != nil {
		return nil, fmt.Errorf("orders: consolidate: create merged order: %w", err)
	}

	// Copy every product from every candidate, re-sequencing line order
	// across the whole set.
	var copies []models.OrderProduct
	seq := 0
	for _, o := range candidates {
		var products []models.OrderProduct
		if err := db.Where("order_id = ?", o.ID).Order("line_order ASC").Find(&products).Error; err != nil {
			compensateMerged(db, merged.ID)
			return nil, fmt.Errorf("orders: consolidate: load products of %s: %w", o.ID, err)
		}
		for _, p := range products {
			seq++
			copies = append(copies, models.OrderProduct{
				OrderID:            merged.ID,
				ProductName:        p.ProductName,
				Quantity:           p.Quantity,
				ProductUnit:        p.ProductUnit,
				UnitPrice:          p.UnitPrice,
				LinePrice:          p.LinePrice,
				AIExtracted:        p.AIExtracted,
				AIConfidence:       p.AIConfidence,
				AIOriginalText:     p.AIOriginalText,
				SuggestedProductID: p.SuggestedProductID,
				MatchingConfidence: p.MatchingConfidence,
				LineOrder:          seq,
			})
		}
	}
	if len(copies) > 0 {
		if err := db.Create(&copies).Error; err != nil {
			compensateMerged(db, merged.ID)
			return nil, fmt.Errorf("orders: consolidate: copy products: %w", err)
		}
	}

	total, err := ReconcileTotal(db, merged.ID)
	if err != nil {
		compensateMerged(db, merged.ID)
		return nil, err
	}

	// Delete the originals. From here on the merged order is complete, so
	// failures only leave duplicates behind.
	for _, o := range candidates {
		if err := db.Delete(&models.OrderProduct{}, "order_id = ?", o.ID).Error; err != nil {
			log.Warn().Err(err).Str("order_id", o.ID).
				Msg("consolidate: delete of source products failed, duplicates remain")
			continue
		}
		if err := db.Delete(&models.Order{}, "id = ?", o.ID).Error; err != nil {
			log.Warn().Err(err).Str("order_id", o.ID).
				Msg("consolidate: delete of source order failed, duplicate remains")
		}
	}

	return &ConsolidateResult{
		OrderID:     merged.ID,
		SourceCount: len(candidates),
		TotalItems:  len(copies),
		TotalAmount: total,
	}, nil
}

// compensateMerged removes a half-built merged order and any products
// already copied into it.
func compensateMerged(db *gorm.DB, orderID string) {
	if err := db.Delete(&models.OrderProduct{}, "order_id = ?", orderID).Error; err != nil {
		log.Warn().Err(err).Str("order_id", orderID).
			Msg("consolidate: compensation delete of products failed")
	}
	if err := db.Delete(&models.Order{}, "id = ?", orderID).Error; err != nil {
		log.Warn().Err(err).Str("order_id", orderID).
			Msg("consolidate: compensation delete of order failed, orphan remains")
	}
}
