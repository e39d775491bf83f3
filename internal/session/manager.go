// Package session owns the lifecycle of order sessions: the append
// transition used by the ingestion pipeline, user-triggered cancellation,
// the periodic timeout sweep, and the append-only event log.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mercadia/orderdesk/internal/fault"
	"github.com/mercadia/orderdesk/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// sweepStatuses are the states eligible for the timeout sweep.
var sweepStatuses = []string{models.SessionActive, models.SessionCollecting}

// Sweep closes every session whose status is ACTIVE or COLLECTING and whose
// expiry is at or before now, in one batch. Items in a swept session are
// abandoned; no order is built. Returns the number of sessions closed.
// Re-running finds nothing left to close.
func Sweep(db *gorm.DB, now time.Time) (int64, error) {
	result := db.Model(&models.OrderSession{}).
		Where("status IN ? AND expires_at <= ?", sweepStatuses, now).
		Updates(map[string]interface{}{
			"status":    models.SessionClosed,
			"closed_at": now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("session: sweep: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CleanupReport summarizes expiry state without performing any writes.
type CleanupReport struct {
	ExpiredCount int64
	StatusCounts map[string]int64
}

// Report returns the count of currently-expired non-closed sessions plus a
// status histogram across all sessions. The count includes expired
// REVIEWING sessions even though the sweep leaves them alone, so stuck
// claims still show up.
func Report(db *gorm.DB, now time.Time) (*CleanupReport, error) {
	rep := &CleanupReport{StatusCounts: make(map[string]int64)}

	if err := db.Model(&models.OrderSession{}).
		Where("status != ? AND expires_at <= ?", models.SessionClosed, now).
		Count(&rep.ExpiredCount).Error; err != nil {
		return nil, fmt.Errorf("session: count expired: %w", err)
	}

	type statusRow struct {
		Status string
		Count  int64
	}
	var rows []statusRow
	if err := db.Model(&models.OrderSession{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("session: status histogram: %w", err)
	}
	for _, r := range rows {
		rep.StatusCounts[r.Status] = r.Count
	}
	return rep, nil
}

// Cancel closes a session on user request. The session must exist for the
// distributor and must not already be closed. A SESSION_CLOSED event with
// reason "cancelled_by_user" is appended; if that append fails the cancel
// still stands and a warning is logged.
func Cancel(db *gorm.DB, distributorID, sessionID string, now time.Time) error {
	var sess models.OrderSession
	err := db.Where("id = ? AND distributor_id = ?", sessionID, distributorID).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("session: cancel %s: %w", sessionID, fault.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("session: cancel %s: %w", sessionID, err)
	}
	if sess.Status == models.SessionClosed {
		return fmt.Errorf("session: cancel %s: already closed: %w", sessionID, fault.ErrInvalidState)
	}

	// Guarded close so a racing cancel or close cannot double-apply.
	result := db.Model(&models.OrderSession{}).
		Where("id = ? AND status != ?", sessionID, models.SessionClosed).
		Updates(map[string]interface{}{
			"status":    models.SessionClosed,
			"closed_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("session: cancel %s: %w", sessionID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("session: cancel %s: already closed: %w", sessionID, fault.ErrInvalidState)
	}

	if err := AppendEvent(db, sessionID, models.EventSessionClosed,
		map[string]interface{}{"reason": "cancelled_by_user"}, false); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("cancel: event append failed")
	}
	return nil
}

// ItemInput carries one extracted draft item from the upstream ingestion
// collaborator, together with the message it came from.
type ItemInput struct {
	DistributorID      string
	ConversationID     string
	MessageID          string
	ProductName        string
	Quantity           float64
	ProductUnit        string
	UnitPrice          *float64
	LineTotal          *float64
	AIConfidence       float64
	OriginalText       string
	SuggestedProductID *string
	MatchingConfidence float64
}

// AppendItem records one draft item against the conversation's open
// session, creating the session if none exists. A conversation has at most
// one non-closed session; appending to a session under review is rejected.
// Each append refreshes the activity timestamps and pushes expiry out by
// ttl.
func AppendItem(db *gorm.DB, in ItemInput, ttl time.Duration, now time.Time) (*models.OrderSession, *models.OrderSessionItem, error) {
	var sess models.OrderSession
	err := db.Where("conversation_id = ? AND distributor_id = ? AND status != ?",
		in.ConversationID, in.DistributorID, models.SessionClosed).First(&sess).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		sess = models.OrderSession{
			ID:                  uuid.NewString(),
			ConversationID:      in.ConversationID,
			DistributorID:       in.DistributorID,
			Status:              models.SessionActive,
			StartedAt:           now,
			LastActivityAt:      now,
			ExpiresAt:           now.Add(ttl),
			TotalMessagesCount:  1,
			ConfidenceScore:     in.AIConfidence,
			CollectedMessageIDs: mustMarshalIDs([]string{in.MessageID}),
		}
		if err := db.Create(&sess).Error; err != nil {
			return nil, nil, fmt.Errorf("session: create for conversation %s: %w", in.ConversationID, err)
		}
	case err != nil:
		return nil, nil, fmt.Errorf("session: lookup for conversation %s: %w", in.ConversationID, err)
	case sess.Status == models.SessionReviewing:
		return nil, nil, fmt.Errorf("session: append to %s: under review: %w", sess.ID, fault.ErrInvalidState)
	default:
		ids := unmarshalIDs(sess.CollectedMessageIDs)
		if in.MessageID != "" {
			ids = append(ids, in.MessageID)
		}
		updates := map[string]interface{}{
			"last_activity_at":      now,
			"expires_at":            now.Add(ttl),
			"total_messages_count":  sess.TotalMessagesCount + 1,
			"collected_message_ids": mustMarshalIDs(ids),
		}
		// A second item moves the session from ACTIVE to COLLECTING.
		if sess.Status == models.SessionActive {
			updates["status"] = models.SessionCollecting
		}
		if err := db.Model(&models.OrderSession{}).Where("id = ?", sess.ID).Updates(updates).Error; err != nil {
			return nil, nil, fmt.Errorf("session: touch %s: %w", sess.ID, err)
		}
	}

	var maxSeq int
	if err := db.Model(&models.OrderSessionItem{}).
		Where("session_id = ?", sess.ID).
		Select("COALESCE(MAX(sequence_number), 0)").Scan(&maxSeq).Error; err != nil {
		return nil, nil, fmt.Errorf("session: next sequence for %s: %w", sess.ID, err)
	}

	item := models.OrderSessionItem{
		SessionID:          sess.ID,
		SequenceNumber:     maxSeq + 1,
		ProductName:        in.ProductName,
		Quantity:           in.Quantity,
		ProductUnit:        in.ProductUnit,
		UnitPrice:          in.UnitPrice,
		LineTotal:          in.LineTotal,
		AIConfidence:       in.AIConfidence,
		OriginalText:       in.OriginalText,
		ItemStatus:         models.ItemActive,
		SuggestedProductID: in.SuggestedProductID,
		MatchingConfidence: in.MatchingConfidence,
	}
	if err := db.Create(&item).Error; err != nil {
		return nil, nil, fmt.Errorf("session: append item to %s: %w", sess.ID, err)
	}

	// Keep the session confidence as the running mean over active items.
	var meanConf float64
	if err := db.Model(&models.OrderSessionItem{}).
		Where("session_id = ? AND item_status = ?", sess.ID, models.ItemActive).
		Select("COALESCE(AVG(ai_confidence), 0)").Scan(&meanConf).Error; err != nil {
		return nil, nil, fmt.Errorf("session: mean confidence for %s: %w", sess.ID, err)
	}
	if err := db.Model(&models.OrderSession{}).Where("id = ?", sess.ID).
		Update("confidence_score", meanConf).Error; err != nil {
		return nil, nil, fmt.Errorf("session: update confidence for %s: %w", sess.ID, err)
	}

	if err := db.First(&sess, "id = ?", sess.ID).Error; err != nil {
		return nil, nil, fmt.Errorf("session: reload %s: %w", sess.ID, err)
	}
	return &sess, &item, nil
}

// RemoveItem marks a session item as removed so it no longer participates
// in order creation. The session must not be closed.
func RemoveItem(db *gorm.DB, distributorID, sessionID string, itemID uint) error {
	var sess models.OrderSession
	err := db.Where("id = ? AND distributor_id = ?", sessionID, distributorID).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("session: remove item: session %s: %w", sessionID, fault.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("session: remove item: %w", err)
	}
	if sess.Status == models.SessionClosed {
		return fmt.Errorf("session: remove item from %s: already closed: %w", sessionID, fault.ErrInvalidState)
	}

	result := db.Model(&models.OrderSessionItem{}).
		Where("id = ? AND session_id = ?", itemID, sessionID).
		Update("item_status", models.ItemRemoved)
	if result.Error != nil {
		return fmt.Errorf("session: remove item %d: %w", itemID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("session: remove item %d: %w", itemID, fault.ErrNotFound)
	}
	return nil
}

// Get returns a session with its active items ordered by sequence.
func Get(db *gorm.DB, distributorID, sessionID string) (*models.OrderSession, error) {
	var sess models.OrderSession
	err := db.Preload("Items", func(tx *gorm.DB) *gorm.DB {
		return tx.Where("item_status = ?", models.ItemActive).Order("sequence_number ASC")
	}).Where("id = ? AND distributor_id = ?", sessionID, distributorID).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("session: get %s: %w", sessionID, fault.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("session: get %s: %w", sessionID, err)
	}
	return &sess, nil
}

// mustMarshalIDs marshals a string slice to JSON. A string slice cannot
// fail to marshal.
func mustMarshalIDs(ids []string) string {
	data, _ := json.Marshal(ids)
	return string(data)
}

// unmarshalIDs parses a JSON array of message ids, tolerating empty or
// malformed stored values.
func unmarshalIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil
	}
	return ids
}
