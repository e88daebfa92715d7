// Package search ranks tagged stickers against free-text queries.
//
// A sticker's match count is the number of distinct query tokens that
// appear as a substring of at least one of its tags. Results are ordered by
// match count, then popularity, both descending. Stickers tied on both keys
// come back in a stable order (ascending id) that callers should not rely on.
//
// Substring matching uses the store's LIKE, so case sensitivity follows the
// store: SQLite folds ASCII case, PostgreSQL does not.
package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	apperrors "github.com/mikepea/stickerdoko/pkg/stickerdoko/errors"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/models"
	"gorm.io/gorm"
)

// DefaultLimit is the Bot API cap on inline query results
const DefaultLimit = 50

// Result is one ranked sticker
type Result struct {
	StickerID  uint   `json:"sticker_id"`
	FileID     string `json:"file_id"`
	MatchCount int    `json:"match_count"`
	Popularity int64  `json:"popularity"`
}

// Engine runs searches against the tag store
type Engine struct {
	db    *gorm.DB
	limit int
	log   *slog.Logger
}

// NewEngine creates an engine returning at most limit results. A limit of
// zero or less uses DefaultLimit.
func NewEngine(db *gorm.DB, limit int, log *slog.Logger) *Engine {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{db: db, limit: limit, log: log}
}

// Limit returns the maximum number of results per search
func (e *Engine) Limit() int {
	return e.limit
}

// Tokens splits a query into distinct tokens, keeping first-seen order
func Tokens(query string) []string {
	fields := strings.Fields(query)
	seen := make(map[string]struct{}, len(fields))
	tokens := fields[:0]
	for _, f := range fields {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	return tokens
}

// Search returns stickers ranked against query. A blank query returns no
// results and no error.
func (e *Engine) Search(ctx context.Context, query string) ([]Result, error) {
	tokens := Tokens(query)
	if len(tokens) == 0 {
		return []Result{}, nil
	}

	matched, err := e.matchTokens(ctx, tokens)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	if len(matched) == 0 {
		return []Result{}, nil
	}

	ids := make([]uint, 0, len(matched))
	for id := range matched {
		ids = append(ids, id)
	}

	var found []models.Sticker
	err = e.db.WithContext(ctx).
		Select("id", "file_id", "popularity").
		Where("id IN ?", ids).
		Order("popularity DESC").
		Order("id ASC").
		Find(&found).Error
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}

	results := make([]Result, len(found))
	for i, s := range found {
		results[i] = Result{
			StickerID:  s.ID,
			FileID:     s.FileID,
			MatchCount: len(matched[s.ID]),
			Popularity: s.Popularity,
		}
	}

	// Stable, so popularity order from the query survives within a match count
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].MatchCount > results[j].MatchCount
	})

	if len(results) > e.limit {
		results = results[:e.limit]
	}

	e.log.DebugContext(ctx, "search", "tokens", tokens, "candidates", len(matched), "results", len(results))
	return results, nil
}

// matchTokens maps each sticker to the set of token indexes it matched.
// A sticker matching one token through several tags or taggers is counted
// once for that token.
func (e *Engine) matchTokens(ctx context.Context, tokens []string) (map[uint]map[int]struct{}, error) {
	matched := make(map[uint]map[int]struct{})
	for i, token := range tokens {
		var ids []uint
		err := e.db.WithContext(ctx).Model(&models.TaggedSticker{}).
			Where(`tag LIKE ? ESCAPE '\'`, "%"+escapeLike(token)+"%").
			Distinct().
			Pluck("sticker_id", &ids).Error
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			set, ok := matched[id]
			if !ok {
				set = make(map[int]struct{})
				matched[id] = set
			}
			set[i] = struct{}{}
		}
	}
	return matched, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes token match literally inside a LIKE pattern
func escapeLike(token string) string {
	return likeEscaper.Replace(token)
}
