package orders

import (
	"errors"
	"fmt"

	"github.com/mercadia/orderdesk/internal/fault"
	"github.com/mercadia/orderdesk/internal/models"
	"gorm.io/gorm"
)

// ConversationResolver resolves a conversation to the customer and channel
// an order should be attributed to. Identity resolution is owned by the
// messaging side of the platform; the order builder only consumes it.
type ConversationResolver interface {
	Resolve(distributorID, conversationID string) (*models.Conversation, error)
}

// dbConversations resolves conversations from the shared relational store.
type dbConversations struct {
	db *gorm.DB
}

// NewConversationResolver returns a resolver backed by the conversations
// table.
func NewConversationResolver(db *gorm.DB) ConversationResolver {
	return &dbConversations{db: db}
}

func (r *dbConversations) Resolve(distributorID, conversationID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.Where("id = ? AND distributor_id = ?", conversationID, distributorID).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("orders: conversation %s: %w", conversationID, fault.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("orders: conversation %s: %w", conversationID, err)
	}
	return &conv, nil
}
