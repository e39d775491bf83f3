package orders

import (
	"errors"
	"fmt"

	"github.com/mercadia/orderdesk/internal/fault"
	"github.com/mercadia/orderdesk/internal/models"
	"gorm.io/gorm"
)

// ProductUpdate is a partial update to an order line item. Only non-nil
// fields are applied. When Quantity or UnitPrice changes and no explicit
// LinePrice override is supplied, the line price is rederived before the
// order total is reconciled.
type ProductUpdate struct {
	ProductName        *string
	Quantity           *float64
	ProductUnit        *string
	UnitPrice          *float64
	LinePrice          *float64
	SuggestedProductID *string
	MatchingConfidence *float64
}

// UpdateProduct applies a partial update to one line item and reconciles
// the order total. Returns the updated product and the new total.
func UpdateProduct(db *gorm.DB, distributorID, orderID string, productID uint, upd ProductUpdate) (*models.OrderProduct, float64, error) {
	product, err := loadProduct(db, distributorID, orderID, productID)
	if err != nil {
		return nil, 0, err
	}

	updates := make(map[string]interface{})
	if upd.ProductName != nil {
		updates["product_name"] = *upd.ProductName
	}
	if upd.ProductUnit != nil {
		updates["product_unit"] = *upd.ProductUnit
	}
	if upd.SuggestedProductID != nil {
		updates["suggested_product_id"] = *upd.SuggestedProductID
	}
	if upd.MatchingConfidence != nil {
		updates["matching_confidence"] = *upd.MatchingConfidence
	}

	quantity := product.Quantity
	unitPrice := product.UnitPrice
	if upd.Quantity != nil {
		quantity = *upd.Quantity
		updates["quantity"] = quantity
	}
	if upd.UnitPrice != nil {
		unitPrice = *upd.UnitPrice
		updates["unit_price"] = unitPrice
	}

	switch {
	case upd.LinePrice != nil:
		updates["line_price"] = round2(*upd.LinePrice)
	case upd.Quantity != nil || upd.UnitPrice != nil:
		updates["line_price"] = linePrice(quantity, &unitPrice, nil)
	}

	if len(updates) > 0 {
		if err := db.Model(&models.OrderProduct{}).
			Where("id = ?", productID).
			Updates(updates).Error; err != nil {
			return nil, 0, fmt.Errorf("orders: update product %d: %w", productID, err)
		}
	}

	total, err := ReconcileTotal(db, orderID)
	if err != nil {
		return nil, 0, err
	}

	var updated models.OrderProduct
	if err := db.First(&updated, productID).Error; err != nil {
		return nil, 0, fmt.Errorf("orders: reload product %d: %w", productID, err)
	}
	return &updated, total, nil
}

// DeleteProduct removes one line item and reconciles the order total.
func DeleteProduct(db *gorm.DB, distributorID, orderID string, productID uint) (float64, error) {
	if _, err := loadProduct(db, distributorID, orderID, productID); err != nil {
		return 0, err
	}

	if err := db.Delete(&models.OrderProduct{}, productID).Error; err != nil {
		return 0, fmt.Errorf("orders: delete product %d: %w", productID, err)
	}
	return ReconcileTotal(db, orderID)
}

// loadProduct fetches a line item, scoped to the distributor that owns the
// order.
func loadProduct(db *gorm.DB, distributorID, orderID string, productID uint) (*models.OrderProduct, error) {
	var order models.Order
	err := db.Where("id = ? AND distributor_id = ?", orderID, distributorID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("orders: order %s: %w", orderID, fault.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("orders: order %s: %w", orderID, err)
	}

	var product models.OrderProduct
	err = db.Where("id = ? AND order_id = ?", productID, orderID).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("orders: product %d: %w", productID, fault.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("orders: product %d: %w", productID, err)
	}
	return &product, nil
}
