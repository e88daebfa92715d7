// Package feedback counts how often search results are actually sent.
//
// Feedback is best effort: failures are logged and never returned, so a
// broken counter cannot fail the surrounding interaction.
package feedback

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/mikepea/stickerdoko/pkg/stickerdoko/models"
	"gorm.io/gorm"
)

// Recorder increments sticker popularity
type Recorder struct {
	db  *gorm.DB
	log *slog.Logger
}

// NewRecorder creates a new popularity recorder
func NewRecorder(db *gorm.DB, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{db: db, log: log}
}

// RecordSelection adds one to the sticker's popularity. The increment is a
// single UPDATE so concurrent selections are serialized by the store and
// none are lost.
func (r *Recorder) RecordSelection(ctx context.Context, stickerID uint) {
	res := r.db.WithContext(ctx).Model(&models.Sticker{}).
		Where("id = ?", stickerID).
		UpdateColumn("popularity", gorm.Expr("popularity + ?", 1))
	if res.Error != nil {
		r.log.ErrorContext(ctx, "failed to record sticker selection", "sticker_id", stickerID, "error", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		r.log.WarnContext(ctx, "chosen sticker not found", "sticker_id", stickerID)
	}
}

// RecordResult records a selection identified by an inline result id, which
// is the sticker id in decimal
func (r *Recorder) RecordResult(ctx context.Context, resultID string) {
	id, err := strconv.ParseUint(resultID, 10, 64)
	if err != nil || id == 0 {
		r.log.WarnContext(ctx, "chosen result id is not a sticker id", "result_id", resultID)
		return
	}
	r.RecordSelection(ctx, uint(id))
}
