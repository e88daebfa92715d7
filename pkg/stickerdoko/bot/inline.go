package bot

import (
	"context"
	"strconv"
	"strings"

	"github.com/mikepea/stickerdoko/pkg/stickerdoko/telegram"
)

// handleInlineQuery answers a search. Blank queries and failed searches get
// no answer.
func (h *Handler) handleInlineQuery(ctx context.Context, q *telegram.InlineQuery) *telegram.AnswerInlineQuery {
	if strings.TrimSpace(q.Query) == "" {
		return nil
	}

	username := q.From.UsernameOr(unknownUser)
	h.log.InfoContext(ctx, "inline query", "user", username, "query", q.Query)

	results, err := h.engine.Search(ctx, q.Query)
	if err != nil {
		h.log.ErrorContext(ctx, "search failed", "user", username, "error", err)
		return nil
	}

	// The sticker id doubles as the inline result id so a later
	// chosen_inline_result can be credited to it
	answers := make([]telegram.InlineQueryResultCachedSticker, len(results))
	for i, r := range results {
		answers[i] = telegram.NewCachedSticker(strconv.FormatUint(uint64(r.StickerID), 10), r.FileID)
	}

	h.log.InfoContext(ctx, "returning inline results", "user", username, "results", len(answers))
	return telegram.NewAnswerInlineQuery(q, answers, 0)
}
