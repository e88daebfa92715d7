// Package tags applies and removes tag associations on stickers.
package tags

import (
	"context"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/mikepea/stickerdoko/pkg/stickerdoko/errors"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/models"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/stickers"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/taggers"
	"gorm.io/gorm"
)

// Service is the tag mutator
type Service struct {
	db       *gorm.DB
	registry *taggers.Registry
	resolver *stickers.Resolver
	log      *slog.Logger
	now      func() time.Time
}

// NewService creates a tag service gated by registry
func NewService(db *gorm.DB, registry *taggers.Registry, resolver *stickers.Resolver, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		db:       db,
		registry: registry,
		resolver: resolver,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// TagRequest describes a tag command on a sticker
type TagRequest struct {
	CallerID     int64
	FileUniqueID string
	FileID       string
	SetName      string
	Text         string
}

// TagResult reports which tags were stored
type TagResult struct {
	StickerID uint
	Applied   []string
	Failed    []string
}

// UntagRequest describes an untag command on a sticker
type UntagRequest struct {
	CallerID     int64
	FileUniqueID string
	Text         string
}

// Split breaks raw command text into tag tokens
func Split(text string) []string {
	return strings.Fields(text)
}

// Tag attaches every whitespace-separated token in req.Text to the sticker,
// attributed to the caller. Preconditions are checked in order: the caller
// must be allowed, the sticker must belong to a set, and at least one tag
// must be given.
//
// When some tokens fail to insert, the partial result is returned alongside
// an ErrStoreUnavailable whose details list the failed tags.
func (s *Service) Tag(ctx context.Context, req TagRequest) (*TagResult, error) {
	tagger, err := s.registry.Authorize(ctx, req.CallerID)
	if err != nil {
		return nil, err
	}

	if req.SetName == "" {
		s.log.InfoContext(ctx, "sticker does not belong to a sticker set", "user", tagger.Username, "file_unique_id", req.FileUniqueID)
		return nil, apperrors.Untaggable("sticker " + req.FileUniqueID + " has no sticker set")
	}

	tokens := Split(req.Text)
	if len(tokens) == 0 {
		s.log.InfoContext(ctx, "tag command without any tags", "user", tagger.Username)
		return nil, apperrors.NoTags("no tags given")
	}

	stickerID, err := s.resolver.ResolveOrCreate(ctx, req.FileUniqueID, req.FileID, req.SetName)
	if err != nil {
		return nil, err
	}

	result := &TagResult{StickerID: stickerID}
	now := s.now()
	var firstErr error
	for _, token := range tokens {
		row := models.TaggedSticker{
			Tag:       token,
			StickerID: stickerID,
			TaggerID:  tagger.ID,
			CreatedAt: now,
		}
		if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
			result.Failed = append(result.Failed, token)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		result.Applied = append(result.Applied, token)
	}

	s.log.InfoContext(ctx, "tagged sticker",
		"user", tagger.Username,
		"sticker_id", stickerID,
		"file_unique_id", req.FileUniqueID,
		"set", req.SetName,
		"tags", result.Applied,
	)

	if len(result.Failed) > 0 {
		s.log.ErrorContext(ctx, "some tags were not applied",
			"user", tagger.Username,
			"sticker_id", stickerID,
			"failed", result.Failed,
			"error", firstErr,
		)
		return result, apperrors.StoreUnavailable(firstErr).WithDetails(result.Failed)
	}
	return result, nil
}

// Untag removes the caller's own associations between the sticker and each
// token in req.Text and returns how many rows were deleted. Other taggers'
// associations are never touched. No tokens, or a sticker that was never
// tagged, removes nothing.
func (s *Service) Untag(ctx context.Context, req UntagRequest) (int64, error) {
	tagger, err := s.registry.Authorize(ctx, req.CallerID)
	if err != nil {
		return 0, err
	}

	tokens := Split(req.Text)
	if len(tokens) == 0 {
		return 0, nil
	}

	sticker, err := s.resolver.FindByUniqueID(ctx, req.FileUniqueID)
	if err != nil {
		return 0, apperrors.StoreUnavailable(err)
	}
	if sticker == nil {
		s.log.InfoContext(ctx, "untag against an unindexed sticker", "user", tagger.Username, "file_unique_id", req.FileUniqueID)
		return 0, nil
	}

	res := s.db.WithContext(ctx).
		Where("sticker_id = ? AND tag IN ? AND tagger_id = ?", sticker.ID, tokens, tagger.ID).
		Delete(&models.TaggedSticker{})
	if res.Error != nil {
		return 0, apperrors.StoreUnavailable(res.Error)
	}

	s.log.InfoContext(ctx, "removed tags from sticker",
		"user", tagger.Username,
		"sticker_id", sticker.ID,
		"tags", tokens,
		"rows", res.RowsAffected,
	)
	return res.RowsAffected, nil
}

// List returns every tag on the sticker in insertion order, including
// duplicates from different taggers. Unknown stickers have no tags.
func (s *Service) List(ctx context.Context, fileUniqueID string) ([]string, error) {
	sticker, err := s.resolver.FindByUniqueID(ctx, fileUniqueID)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	if sticker == nil {
		return []string{}, nil
	}

	var tags []string
	err = s.db.WithContext(ctx).Model(&models.TaggedSticker{}).
		Where("sticker_id = ?", sticker.ID).
		Order("id").
		Pluck("tag", &tags).Error
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}
