package models

import "time"

// Order statuses.
const (
	OrderPendingReview = "PENDING_REVIEW"
	OrderConfirmed     = "CONFIRMED"
	OrderCancelled     = "CANCELLED"
)

// Order is a finalized purchase record. Invariant: TotalAmount equals the
// sum of LinePrice over all OrderProduct rows for this order once a
// mutation sequence has settled.
type Order struct {
	ID                string  `gorm:"primaryKey;size:36"`
	CustomerID        string  `gorm:"size:36;not null;index"`
	DistributorID     string  `gorm:"size:36;not null;index"`
	ConversationID    *string `gorm:"size:36;index"`
	Channel           string  `gorm:"size:32"`
	Status            string  `gorm:"size:24;default:PENDING_REVIEW;index"`
	ReceivedDate      time.Time
	ReceivedTime      string `gorm:"size:8"` // "15:04:05"
	DeliveryDate      *time.Time
	TotalAmount       float64 `gorm:"type:decimal(12,2);default:0"`
	AdditionalComment string  `gorm:"type:text"`
	AIGenerated       bool    `gorm:"default:false"`
	AIConfidence      float64 `gorm:"default:0"`
	AISourceMessageID *string `gorm:"size:64"`
	RequiresReview    bool    `gorm:"default:false"`
	IsConsolidated    bool    `gorm:"default:false"`
	OrderSessionID    *string `gorm:"size:36;index"`
	CreatedAt         time.Time
	UpdatedAt         time.Time

	Products []OrderProduct `gorm:"foreignKey:OrderID"`
}

// OrderProduct is one finalized line item. LinePrice is derived as
// Quantity*UnitPrice unless an explicit override was supplied on write.
type OrderProduct struct {
	ID                 uint   `gorm:"primaryKey;autoIncrement"`
	OrderID            string `gorm:"size:36;not null;index"`
	ProductName        string `gorm:"size:255;not null"`
	Quantity           float64
	ProductUnit        string  `gorm:"size:32"`
	UnitPrice          float64 `gorm:"type:decimal(12,2)"`
	LinePrice          float64 `gorm:"type:decimal(12,2)"`
	AIExtracted        bool    `gorm:"default:false"`
	AIConfidence       float64 `gorm:"default:0"`
	AIOriginalText     string  `gorm:"type:text"`
	SuggestedProductID *string `gorm:"size:36"`
	MatchingConfidence float64 `gorm:"default:0"`
	LineOrder          int     `gorm:"not null"`
	CreatedAt          time.Time

	Order Order `gorm:"foreignKey:OrderID"`
}
