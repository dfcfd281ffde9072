package models

import "time"

// Room is a Slack conversation: public or private channel, group DM or DM.
type Room struct {
	ID         string `gorm:"primaryKey;size:32"`
	Name       string `gorm:"size:128;not null;index"`
	IsPrivate  bool   `gorm:"default:false;index"`
	IsIM       bool   `gorm:"default:false"`
	IsMPIM     bool   `gorm:"default:false"`
	IsArchived bool   `gorm:"default:false"`
	Topic      string `gorm:"size:256"`
	UpdatedAt  time.Time
}
