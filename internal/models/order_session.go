package models

import "time"

// Session lifecycle states. Closed is terminal: no transition leaves it.
const (
	SessionActive     = "ACTIVE"
	SessionCollecting = "COLLECTING"
	SessionReviewing  = "REVIEWING"
	SessionClosed     = "CLOSED"
)

// Item states within a session. Only active items participate in order
// creation.
const (
	ItemActive  = "ACTIVE"
	ItemRemoved = "REMOVED"
)

// Session event types written to the append-only audit log.
const (
	EventSessionClosed = "SESSION_CLOSED"
	EventOrderCreated  = "ORDER_CREATED"
)

// OrderSession is a time-bounded collection buffer tied to exactly one
// conversation. Draft line items accumulate here until the session is
// closed into an order, cancelled, or swept after expiry. Sessions are
// never deleted; the terminal state is CLOSED.
type OrderSession struct {
	ID                  string  `gorm:"primaryKey;size:36"`
	ConversationID      string  `gorm:"size:36;not null;index"`
	DistributorID       string  `gorm:"size:36;not null;index"`
	Status              string  `gorm:"size:16;default:ACTIVE;index"`
	StartedAt           time.Time
	LastActivityAt      time.Time
	ExpiresAt           time.Time `gorm:"index"`
	ClosedAt            *time.Time
	TotalMessagesCount  int     `gorm:"default:0"`
	ConfidenceScore     float64 `gorm:"default:0"`
	CollectedMessageIDs string  `gorm:"type:json"` // JSON array of message IDs, in arrival order

	Items  []OrderSessionItem  `gorm:"foreignKey:SessionID"`
	Events []OrderSessionEvent `gorm:"foreignKey:SessionID"`
}

// OrderSessionItem is one candidate product line inside a session.
type OrderSessionItem struct {
	ID                 uint   `gorm:"primaryKey;autoIncrement"`
	SessionID          string `gorm:"size:36;not null;index"`
	SequenceNumber     int    `gorm:"not null"`
	ProductName        string `gorm:"size:255;not null"`
	Quantity           float64
	ProductUnit        string   `gorm:"size:32"`
	UnitPrice          *float64 `gorm:"type:decimal(12,2)"`
	LineTotal          *float64 `gorm:"type:decimal(12,2)"`
	AIConfidence       float64  `gorm:"default:0"`
	OriginalText       string   `gorm:"type:text"`
	ItemStatus         string   `gorm:"size:16;default:ACTIVE;index"`
	SuggestedProductID *string  `gorm:"size:36"`
	MatchingConfidence float64  `gorm:"default:0"`
	CreatedAt          time.Time

	Session OrderSession `gorm:"foreignKey:SessionID"`
}

// OrderSessionEvent is an append-only audit record. Events are written by
// the lifecycle manager and order builder and never mutated, deleted, or
// read back for control flow.
type OrderSessionEvent struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	SessionID   string `gorm:"size:36;not null;index"`
	EventType   string `gorm:"size:32;not null"`
	EventData   string `gorm:"type:json"`
	AITriggered bool   `gorm:"default:false"`
	CreatedAt   time.Time
}
