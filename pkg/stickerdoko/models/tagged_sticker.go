package models

import "time"

// TaggedSticker links one tag to one sticker, contributed by one tagger.
// The same (sticker, tag, tagger) combination may appear more than once.
type TaggedSticker struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Tag       string    `gorm:"type:text;not null;index" json:"tag"`
	StickerID uint      `gorm:"not null;index" json:"sticker_id"`
	TaggerID  uint      `gorm:"not null;index" json:"tagger_id"`
}
