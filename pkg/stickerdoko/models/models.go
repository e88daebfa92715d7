package models

import "gorm.io/gorm"

// AllModels returns all models for migration
func AllModels() []interface{} {
	return []interface{}{
		&Sticker{},
		&TaggedSticker{},
		&Tagger{},
	}
}

// AutoMigrate creates any missing tables, columns and indexes
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
