package models

import "time"

// Conversation is the minimal projection of a customer conversation that
// order creation needs: who the customer is and which channel the
// conversation arrived on. Rows are maintained by the upstream messaging
// pipeline; this service only reads them.
type Conversation struct {
	ID            string `gorm:"primaryKey;size:36"`
	DistributorID string `gorm:"size:36;not null;index"`
	CustomerID    string `gorm:"size:36;not null"`
	Channel       string `gorm:"size:32;not null"`
	CreatedAt     time.Time
}
