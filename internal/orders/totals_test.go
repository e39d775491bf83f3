package orders

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mercadia/orderdesk/internal/fault"
	"github.com/mercadia/orderdesk/internal/models"
	"gorm.io/gorm"
)

func TestRound2_HalfUp(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{2.005, 2.01},
		{2.675, 2.68},
		{11.0, 11.0},
		{0.004, 0.0},
		{0.005, 0.01},
		{3.333, 3.33},
		{9.999, 10.0},
	}
	for _, c := range cases {
		if got := round2(c.in); got != c.want {
			t.Errorf("round2(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestLinePrice(t *testing.T) {
	unit := 3.00
	total := 10.00

	if got := linePrice(2, &unit, nil); got != 6.00 {
		t.Errorf("linePrice(2, 3.00, nil) = %v, want 6.00", got)
	}
	if got := linePrice(2, &unit, &total); got != 10.00 {
		t.Errorf("explicit line total should win: got %v, want 10.00", got)
	}
	if got := linePrice(2, nil, nil); got != 0 {
		t.Errorf("unpriced item = %v, want 0", got)
	}

	// Derivation rounds half-up at two decimals.
	oddUnit := 0.333
	if got := linePrice(3, &oddUnit, nil); got != 1.00 {
		t.Errorf("linePrice(3, 0.333, nil) = %v, want 1.00", got)
	}
}

// seedOrderWithProducts inserts an order and products with the given line
// prices. The stored total starts out stale on purpose.
func seedOrderWithProducts(t *testing.T, gdb *gorm.DB, linePrices []float64) *models.Order {
	t.Helper()
	order := models.Order{
		ID:            uuid.NewString(),
		CustomerID:    "cust-1",
		DistributorID: "dist-1",
		Channel:       "whatsapp",
		Status:        models.OrderPendingReview,
		ReceivedDate:  time.Now(),
		TotalAmount:   -1,
	}
	if err := gdb.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	for i, lp := range linePrices {
		p := models.OrderProduct{
			OrderID:     order.ID,
			ProductName: "Item",
			Quantity:    1,
			UnitPrice:   lp,
			LinePrice:   lp,
			LineOrder:   i + 1,
		}
		if err := gdb.Create(&p).Error; err != nil {
			t.Fatalf("seed product %d: %v", i, err)
		}
	}
	return &order
}

func TestReconcileTotal_SumsLinePrices(t *testing.T) {
	gdb := openOrdersTestDB(t)
	order := seedOrderWithProducts(t, gdb, []float64{6.00, 5.00, 0.45})

	total, err := ReconcileTotal(gdb, order.ID)
	if err != nil {
		t.Fatalf("ReconcileTotal: %v", err)
	}
	if total != 11.45 {
		t.Errorf("total = %v, want 11.45", total)
	}

	var got models.Order
	gdb.First(&got, "id = ?", order.ID)
	if got.TotalAmount != 11.45 {
		t.Errorf("stored TotalAmount = %v, want 11.45", got.TotalAmount)
	}
}

func TestReconcileTotal_EmptyOrderIsZero(t *testing.T) {
	gdb := openOrdersTestDB(t)
	order := seedOrderWithProducts(t, gdb, nil)

	total, err := ReconcileTotal(gdb, order.ID)
	if err != nil {
		t.Fatalf("ReconcileTotal: %v", err)
	}
	if total != 0 {
		t.Errorf("total = %v, want 0", total)
	}
}

func TestUpdateProduct_RecomputesLinePriceAndTotal(t *testing.T) {
	gdb := openOrdersTestDB(t)
	order := seedOrderWithProducts(t, gdb, []float64{6.00, 5.00})
	var product models.OrderProduct
	gdb.Where("order_id = ? AND line_order = ?", order.ID, 1).First(&product)

	qty := 4.0
	unit := 2.50
	updated, total, err := UpdateProduct(gdb, "dist-1", order.ID, product.ID, ProductUpdate{
		Quantity:  &qty,
		UnitPrice: &unit,
	})
	if err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}

	if updated.LinePrice != 10.00 {
		t.Errorf("LinePrice = %v, want 10.00", updated.LinePrice)
	}
	if total != 15.00 {
		t.Errorf("total = %v, want 15.00", total)
	}

	// Round-trip: re-fetch the order and recompute the sum independently.
	var products []models.OrderProduct
	gdb.Where("order_id = ?", order.ID).Find(&products)
	var sum float64
	for _, p := range products {
		sum += p.LinePrice
	}
	var got models.Order
	gdb.First(&got, "id = ?", order.ID)
	if got.TotalAmount != round2(sum) {
		t.Errorf("TotalAmount = %v, want recomputed %v", got.TotalAmount, round2(sum))
	}
}

func TestUpdateProduct_ExplicitLinePriceOverride(t *testing.T) {
	gdb := openOrdersTestDB(t)
	order := seedOrderWithProducts(t, gdb, []float64{6.00})
	var product models.OrderProduct
	gdb.Where("order_id = ?", order.ID).First(&product)

	qty := 10.0
	override := 7.77
	updated, total, err := UpdateProduct(gdb, "dist-1", order.ID, product.ID, ProductUpdate{
		Quantity:  &qty,
		LinePrice: &override,
	})
	if err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	if updated.LinePrice != 7.77 {
		t.Errorf("LinePrice = %v, want override 7.77", updated.LinePrice)
	}
	if total != 7.77 {
		t.Errorf("total = %v, want 7.77", total)
	}
}

func TestUpdateProduct_NameOnlyLeavesPriceAlone(t *testing.T) {
	gdb := openOrdersTestDB(t)
	order := seedOrderWithProducts(t, gdb, []float64{6.00})
	var product models.OrderProduct
	gdb.Where("order_id = ?", order.ID).First(&product)

	name := "Renamed"
	updated, total, err := UpdateProduct(gdb, "dist-1", order.ID, product.ID, ProductUpdate{
		ProductName: &name,
	})
	if err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	if updated.ProductName != "Renamed" {
		t.Errorf("ProductName = %q, want %q", updated.ProductName, "Renamed")
	}
	if updated.LinePrice != 6.00 {
		t.Errorf("LinePrice = %v, want unchanged 6.00", updated.LinePrice)
	}
	if total != 6.00 {
		t.Errorf("total = %v, want 6.00", total)
	}
}

func TestUpdateProduct_NotFound(t *testing.T) {
	gdb := openOrdersTestDB(t)
	order := seedOrderWithProducts(t, gdb, []float64{6.00})

	_, _, err := UpdateProduct(gdb, "dist-1", order.ID, 999, ProductUpdate{})
	if !errors.Is(err, fault.ErrNotFound) {
		t.Errorf("UpdateProduct error = %v, want ErrNotFound", err)
	}

	_, _, err = UpdateProduct(gdb, "dist-other", order.ID, 1, ProductUpdate{})
	if !errors.Is(err, fault.ErrNotFound) {
		t.Errorf("UpdateProduct wrong-tenant error = %v, want ErrNotFound", err)
	}
}

func TestDeleteProduct_Reconciles(t *testing.T) {
	gdb := openOrdersTestDB(t)
	order := seedOrderWithProducts(t, gdb, []float64{6.00, 5.00})
	var product models.OrderProduct
	gdb.Where("order_id = ? AND line_order = ?", order.ID, 2).First(&product)

	total, err := DeleteProduct(gdb, "dist-1", order.ID, product.ID)
	if err != nil {
		t.Fatalf("DeleteProduct: %v", err)
	}
	if total != 6.00 {
		t.Errorf("total = %v, want 6.00", total)
	}

	var count int64
	gdb.Model(&models.OrderProduct{}).Where("order_id = ?", order.ID).Count(&count)
	if count != 1 {
		t.Errorf("remaining products = %d, want 1", count)
	}
}

func TestDeleteProduct_LastProductZeroesTotal(t *testing.T) {
	gdb := openOrdersTestDB(t)
	order := seedOrderWithProducts(t, gdb, []float64{6.00})
	var product models.OrderProduct
	gdb.Where("order_id = ?", order.ID).First(&product)

	total, err := DeleteProduct(gdb, "dist-1", order.ID, product.ID)
	if err != nil {
		t.Fatalf("DeleteProduct: %v", err)
	}
	if total != 0 {
		t.Errorf("total = %v, want 0", total)
	}
}
