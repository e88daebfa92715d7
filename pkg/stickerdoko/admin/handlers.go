package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/auth"
	apperrors "github.com/mikepea/stickerdoko/pkg/stickerdoko/errors"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/models"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/search"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/taggers"
	"gorm.io/gorm"
)

// Handler handles admin requests
type Handler struct {
	db       *gorm.DB
	secret   *auth.Secret
	issuer   *auth.Issuer
	registry *taggers.Registry
	engine   *search.Engine
	log      *slog.Logger
}

// NewHandler creates a new admin handler
func NewHandler(db *gorm.DB, secret *auth.Secret, issuer *auth.Issuer, registry *taggers.Registry, engine *search.Engine, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{db: db, secret: secret, issuer: issuer, registry: registry, engine: engine, log: log}
}

// TokenRequest represents the request for an admin token
type TokenRequest struct {
	Secret string `json:"secret" binding:"required"`
}

// TokenResponse represents an issued admin token
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// TaggerResponse represents tagger data in admin responses
type TaggerResponse struct {
	ID        uint   `json:"id"`
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	Allowed   bool   `json:"allowed"`
	CreatedAt string `json:"created_at"`
	TagCount  int64  `json:"tag_count"`
}

// StatsResponse represents system statistics
type StatsResponse struct {
	TotalStickers   int64 `json:"total_stickers"`
	TotalTags       int64 `json:"total_tags"`
	TotalTaggers    int64 `json:"total_taggers"`
	AllowedTaggers  int64 `json:"allowed_taggers"`
	TotalPopularity int64 `json:"total_popularity"`
}

func (h *Handler) taggerResponse(ctx context.Context, t *models.Tagger) (TaggerResponse, error) {
	var tagCount int64
	err := h.db.WithContext(ctx).Model(&models.TaggedSticker{}).Where("tagger_id = ?", t.ID).Count(&tagCount).Error
	if err != nil {
		return TaggerResponse{}, apperrors.StoreUnavailable(err)
	}
	return TaggerResponse{
		ID:        t.ID,
		UserID:    t.UserID,
		Username:  t.Username,
		Allowed:   t.Allowed,
		CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339),
		TagCount:  tagCount,
	}, nil
}

// writeError sends the status and fixed message for a domain error
func (h *Handler) writeError(c *gin.Context, err error, message string) {
	status := http.StatusInternalServerError
	var domainErr *apperrors.Error
	if apperrors.As(err, &domainErr) {
		status = domainErr.HTTPStatus()
	}
	if status >= http.StatusInternalServerError {
		h.log.ErrorContext(c.Request.Context(), message, "error", err)
	}
	c.JSON(status, gin.H{"error": message})
}

// IssueToken exchanges the admin secret for a short-lived bearer token
// @Summary Issue an admin token
// @Description Exchange the shared admin secret for a bearer token
// @Tags admin
// @Accept json
// @Produce json
// @Param request body TokenRequest true "Admin secret"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} map[string]string "Secret missing"
// @Failure 401 {object} map[string]string "Invalid secret"
// @Router /admin/token [post]
func (h *Handler) IssueToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Secret is required"})
		return
	}

	if !h.secret.Matches(req.Secret) {
		h.log.WarnContext(c.Request.Context(), "admin token requested with an invalid secret", "client_ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid secret"})
		return
	}

	token, expires, err := h.issuer.GenerateToken()
	if err != nil {
		h.log.ErrorContext(c.Request.Context(), "failed to sign admin token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Token: token, ExpiresAt: expires.UTC().Format(time.RFC3339)})
}

// ListTaggers returns registered taggers, newest first
// @Summary List taggers
// @Tags admin
// @Produce json
// @Param allowed query bool false "Filter by approval state"
// @Success 200 {array} TaggerResponse
// @Failure 400 {object} map[string]string "Invalid filter"
// @Security BearerAuth
// @Router /admin/taggers [get]
func (h *Handler) ListTaggers(c *gin.Context) {
	var filter taggers.ListFilter
	if raw := c.Query("allowed"); raw != "" {
		allowed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid allowed filter"})
			return
		}
		filter.Allowed = &allowed
	}

	list, err := h.registry.List(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err, "Failed to fetch taggers")
		return
	}

	responses := make([]TaggerResponse, len(list))
	for i := range list {
		responses[i], err = h.taggerResponse(c.Request.Context(), &list[i])
		if err != nil {
			h.writeError(c, err, "Failed to fetch taggers")
			return
		}
	}
	c.JSON(http.StatusOK, responses)
}

// ApproveTagger allows a registered user to tag
// @Summary Approve a tagger
// @Tags admin
// @Produce json
// @Param username path string true "Telegram username"
// @Success 200 {object} TaggerResponse
// @Failure 404 {object} map[string]string "User has not registered"
// @Failure 409 {object} map[string]string "Username is registered by several users"
// @Security BearerAuth
// @Router /admin/taggers/{username}/approve [post]
func (h *Handler) ApproveTagger(c *gin.Context) {
	username := c.Param("username")

	tagger, err := h.registry.Allow(c.Request.Context(), username)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotRegistered) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User has not registered"})
			return
		}
		if apperrors.Is(err, apperrors.ErrAmbiguousUsername) {
			c.JSON(http.StatusConflict, gin.H{"error": "Username is registered by several users"})
			return
		}
		h.writeError(c, err, "Failed to approve tagger")
		return
	}

	subject, _ := auth.GetSubject(c)
	h.log.InfoContext(c.Request.Context(), "tagger approved via admin api", "user", tagger.Username, "by", subject)
	resp, err := h.taggerResponse(c.Request.Context(), tagger)
	if err != nil {
		h.writeError(c, err, "Failed to fetch tagger")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Search runs a ranked search the way the inline query does
// @Summary Search stickers
// @Tags admin
// @Produce json
// @Param q query string true "Search keywords"
// @Success 200 {array} search.Result
// @Security BearerAuth
// @Router /admin/search [get]
func (h *Handler) Search(c *gin.Context) {
	results, err := h.engine.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.writeError(c, err, "Search failed")
		return
	}
	c.JSON(http.StatusOK, results)
}

// GetStats returns system-wide statistics
// @Summary Get statistics
// @Tags admin
// @Produce json
// @Success 200 {object} StatsResponse
// @Failure 500 {object} map[string]string "Store unavailable"
// @Security BearerAuth
// @Router /admin/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	var stats StatsResponse
	db := h.db.WithContext(c.Request.Context())

	queries := []*gorm.DB{
		db.Model(&models.Sticker{}).Count(&stats.TotalStickers),
		db.Model(&models.TaggedSticker{}).Count(&stats.TotalTags),
		db.Model(&models.Tagger{}).Count(&stats.TotalTaggers),
		db.Model(&models.Tagger{}).Where("allowed = ?", true).Count(&stats.AllowedTaggers),
		// Sum of all selections
		db.Model(&models.Sticker{}).Select("COALESCE(SUM(popularity), 0)").Scan(&stats.TotalPopularity),
	}
	for _, q := range queries {
		if q.Error != nil {
			h.writeError(c, apperrors.StoreUnavailable(q.Error), "Failed to fetch stats")
			return
		}
	}

	c.JSON(http.StatusOK, stats)
}

// RegisterPublicRoutes registers the token route, which needs no bearer token
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/token", h.IssueToken)
}

// RegisterRoutes registers admin routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats", h.GetStats)
	rg.GET("/taggers", h.ListTaggers)
	rg.POST("/taggers/:username/approve", h.ApproveTagger)
	rg.GET("/search", h.Search)
}
