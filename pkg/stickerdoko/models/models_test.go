package models

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate failed: %v", err)
	}
	return db
}

func TestAutoMigrate(t *testing.T) {
	db := setupTestDB(t)

	tables := []string{"stickers", "tagged_stickers", "taggers"}
	for _, table := range tables {
		if !db.Migrator().HasTable(table) {
			t.Errorf("Expected table %s to exist", table)
		}
	}
}

func TestStickerDefaults(t *testing.T) {
	db := setupTestDB(t)

	sticker := Sticker{FileUniqueID: "AgADfoo", FileID: "CAACAgIAAxk", SetName: "cats"}
	if err := db.Create(&sticker).Error; err != nil {
		t.Fatalf("Failed to create sticker: %v", err)
	}
	if sticker.ID == 0 {
		t.Error("Expected sticker ID to be set after create")
	}

	var loaded Sticker
	if err := db.First(&loaded, sticker.ID).Error; err != nil {
		t.Fatalf("Failed to load sticker: %v", err)
	}
	if loaded.Popularity != 0 {
		t.Errorf("Expected popularity 0, got %d", loaded.Popularity)
	}
}

func TestStickerUniqueIDUniqueness(t *testing.T) {
	db := setupTestDB(t)

	db.Create(&Sticker{FileUniqueID: "AgADfoo", FileID: "a", SetName: "cats"})
	result := db.Create(&Sticker{FileUniqueID: "AgADfoo", FileID: "b", SetName: "cats"})
	if result.Error == nil {
		t.Error("Expected error when creating sticker with duplicate file_unique_id")
	}
}

func TestDuplicateTagsAllowed(t *testing.T) {
	db := setupTestDB(t)

	sticker := Sticker{FileUniqueID: "AgADfoo", FileID: "a", SetName: "cats"}
	db.Create(&sticker)

	for i := 0; i < 2; i++ {
		row := TaggedSticker{Tag: "cute", StickerID: sticker.ID, TaggerID: 1}
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("Failed to create duplicate tag row: %v", err)
		}
	}

	var count int64
	db.Model(&TaggedSticker{}).Where("sticker_id = ?", sticker.ID).Count(&count)
	if count != 2 {
		t.Errorf("Expected 2 tag rows, got %d", count)
	}
}

func TestTaggerUserIDUniqueness(t *testing.T) {
	db := setupTestDB(t)

	tagger := Tagger{UserID: 42, Username: "alice"}
	if err := db.Create(&tagger).Error; err != nil {
		t.Fatalf("Failed to create tagger: %v", err)
	}
	if tagger.Allowed {
		t.Error("Expected new tagger to not be allowed")
	}

	result := db.Create(&Tagger{UserID: 42, Username: "alice2"})
	if result.Error == nil {
		t.Error("Expected error when creating tagger with duplicate user_id")
	}
}
