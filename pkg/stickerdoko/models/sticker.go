package models

import "time"

// Sticker is one taggable sticker, identified by Telegram's file_unique_id
type Sticker struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	FileUniqueID string    `gorm:"uniqueIndex;not null" json:"file_unique_id"`
	FileID       string    `gorm:"not null" json:"file_id"` // Handed back to Telegram as-is
	SetName      string    `gorm:"not null" json:"set_name"`
	Popularity   int64     `gorm:"not null;default:0" json:"popularity"`
}
