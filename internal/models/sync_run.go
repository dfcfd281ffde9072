package models

import "time"

// SyncRun records one pass of the Slack directory sync.
type SyncRun struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	Trigger      string `gorm:"size:16;not null"` // start, cron, manual
	Status       string `gorm:"size:16;default:running;index"`
	Users        int
	Rooms        int
	StartedAt    time.Time
	CompletedAt  *time.Time
	ErrorMessage string `gorm:"type:text"`
}
