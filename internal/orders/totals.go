package orders

import (
	"fmt"

	"github.com/mercadia/orderdesk/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// round2 rounds a currency amount half-up to two decimal places.
func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// linePrice derives a line amount: an explicit line total wins, otherwise
// quantity times unit price. Items with neither priced field contribute
// zero.
func linePrice(quantity float64, unitPrice, lineTotal *float64) float64 {
	if lineTotal != nil {
		return round2(*lineTotal)
	}
	if unitPrice != nil {
		f, _ := decimal.NewFromFloat(quantity).
			Mul(decimal.NewFromFloat(*unitPrice)).
			Round(2).Float64()
		return f
	}
	return 0
}

// ReconcileTotal recomputes an order's total as the sum of line prices over
// all its remaining products and persists it. Called after every product
// create, update, or delete. The read-modify-write is unguarded; concurrent
// reconciles of the same order are last-write-wins.
func ReconcileTotal(db *gorm.DB, orderID string) (float64, error) {
	var products []models.OrderProduct
	if err := db.Where("order_id = ?", orderID).Find(&products).Error; err != nil {
		return 0, fmt.Errorf("orders: reconcile %s: load products: %w", orderID, err)
	}

	sum := decimal.Zero
	for _, p := range products {
		sum = sum.Add(decimal.NewFromFloat(p.LinePrice))
	}
	total, _ := sum.Round(2).Float64()

	if err := db.Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("total_amount", total).Error; err != nil {
		return 0, fmt.Errorf("orders: reconcile %s: write total: %w", orderID, err)
	}
	return total, nil
}
