package models

import "time"

// Tagger is a Telegram account's registration and tagging permission state.
// Allowed only ever moves from false to true.
type Tagger struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    int64     `gorm:"uniqueIndex;not null" json:"user_id"` // Telegram user id
	Username  string    `gorm:"type:text;not null;index" json:"username"`
	Allowed   bool      `gorm:"not null;default:false" json:"allowed"`
}
