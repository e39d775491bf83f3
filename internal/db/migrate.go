package db

import (
	"fmt"

	"github.com/mercadia/orderdesk/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Conversation{},
		&models.OrderSession{},
		&models.OrderSessionItem{},
		&models.OrderSessionEvent{},
		&models.Order{},
		&models.OrderProduct{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// Reset drops all tables and recreates them. Intended for development and
// test databases only.
func Reset(db *gorm.DB) error {
	for _, m := range AllModels() {
		if err := db.Migrator().DropTable(m); err != nil {
			return fmt.Errorf("db: drop table for %T: %w", m, err)
		}
	}
	return AutoMigrate(db)
}
