package session

import (
	"encoding/json"
	"fmt"

	"github.com/mercadia/orderdesk/internal/models"
	"gorm.io/gorm"
)

// AppendEvent writes one append-only audit record for a session. The event
// log is write-only from this service's point of view: nothing reads it
// back for control flow.
func AppendEvent(db *gorm.DB, sessionID, eventType string, payload map[string]interface{}, aiTriggered bool) error {
	data, err := marshalJSON(payload)
	if err != nil {
		return fmt.Errorf("session: marshal event payload for %s: %w", eventType, err)
	}

	event := models.OrderSessionEvent{
		SessionID:   sessionID,
		EventType:   eventType,
		EventData:   data,
		AITriggered: aiTriggered,
	}
	if err := db.Create(&event).Error; err != nil {
		return fmt.Errorf("session: append event %s: %w", eventType, err)
	}
	return nil
}

// marshalJSON marshals a value to a JSON string, returning "{}" for nil.
func marshalJSON(v map[string]interface{}) (string, error) {
	if v == nil {
		return "{}", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
