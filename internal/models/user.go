package models

import "time"

// User is a Slack workspace member as last seen by the directory sync.
type User struct {
	ID          string `gorm:"primaryKey;size:32"`
	Name        string `gorm:"size:128;not null"` // display name written to logs
	MentionName string `gorm:"size:128"`          // @handle
	RealName    string `gorm:"size:128"`
	IsBot       bool   `gorm:"default:false"`
	Deleted     bool   `gorm:"default:false"`
	UpdatedAt   time.Time
}
