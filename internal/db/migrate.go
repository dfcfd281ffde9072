package db

import (
	"fmt"

	"github.com/zulandar/signalbox/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every GORM model backing the directory.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Room{},
		&models.SyncRun{},
	}
}

// AutoMigrate creates or updates all directory tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
