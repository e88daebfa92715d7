package stickers

import (
	"context"
	"errors"
	"log/slog"

	apperrors "github.com/mikepea/stickerdoko/pkg/stickerdoko/errors"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/models"
	"gorm.io/gorm"
)

// Resolver maps Telegram file_unique_ids to sticker rows
type Resolver struct {
	db  *gorm.DB
	log *slog.Logger
}

// NewResolver creates a new sticker resolver
func NewResolver(db *gorm.DB, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{db: db, log: log}
}

// ResolveOrCreate returns the ID of the sticker with uniqueID, creating it
// first if needed. It inserts and falls back to a lookup only when the insert
// reports a duplicate key, so concurrent callers for one uniqueID all receive
// the ID of the single row that won.
func (r *Resolver) ResolveOrCreate(ctx context.Context, uniqueID, fileID, setName string) (uint, error) {
	sticker := models.Sticker{
		FileUniqueID: uniqueID,
		FileID:       fileID,
		SetName:      setName,
		Popularity:   0,
	}

	err := r.db.WithContext(ctx).Create(&sticker).Error
	if err == nil {
		r.log.DebugContext(ctx, "indexed new sticker", "sticker_id", sticker.ID, "file_unique_id", uniqueID, "set", setName)
		return sticker.ID, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return 0, apperrors.StoreUnavailable(err)
	}

	existing, lookupErr := r.FindByUniqueID(ctx, uniqueID)
	if lookupErr != nil {
		return 0, apperrors.ResolutionFailed("lookup after duplicate insert failed", lookupErr)
	}
	if existing == nil {
		return 0, apperrors.ResolutionFailed("sticker "+uniqueID+" reported as duplicate but not found", err)
	}
	return existing.ID, nil
}

// FindByUniqueID returns the sticker with uniqueID, or nil if it has never
// been tagged
func (r *Resolver) FindByUniqueID(ctx context.Context, uniqueID string) (*models.Sticker, error) {
	var sticker models.Sticker
	err := r.db.WithContext(ctx).Where("file_unique_id = ?", uniqueID).First(&sticker).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sticker, nil
}
