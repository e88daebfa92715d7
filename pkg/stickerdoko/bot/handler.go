// Package bot turns Telegram webhook updates into tagging, search and
// feedback operations. Every reply is returned in the webhook response body.
package bot

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/feedback"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/search"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/stickers"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/taggers"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/tags"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/telegram"
)

// DefaultBotUsername is matched against "/command@bot" mentions
const DefaultBotUsername = "sticker_doko_bot"

// unknownUser stands in for senders without a username in logs
const unknownUser = "<unknown>"

// Config holds webhook settings
type Config struct {
	BotUsername string
	// SecretToken, when set, must arrive in every webhook request
	SecretToken string
}

// Handler handles Telegram webhook requests
type Handler struct {
	registry *taggers.Registry
	tags     *tags.Service
	resolver *stickers.Resolver
	engine   *search.Engine
	recorder *feedback.Recorder
	cfg      Config
	log      *slog.Logger
}

// Deps are the core services the bot dispatches to
type Deps struct {
	Registry *taggers.Registry
	Tags     *tags.Service
	Resolver *stickers.Resolver
	Engine   *search.Engine
	Recorder *feedback.Recorder
}

// NewHandler creates a new webhook handler
func NewHandler(deps Deps, cfg Config, log *slog.Logger) *Handler {
	if cfg.BotUsername == "" {
		cfg.BotUsername = DefaultBotUsername
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		registry: deps.Registry,
		tags:     deps.Tags,
		resolver: deps.Resolver,
		engine:   deps.Engine,
		recorder: deps.Recorder,
		cfg:      cfg,
		log:      log,
	}
}

// Webhook decodes an update and writes the reply method, if any
func (h *Handler) Webhook(c *gin.Context) {
	var update telegram.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid update"})
		return
	}

	reply := h.Dispatch(c.Request.Context(), &update)
	if reply == nil {
		c.Status(http.StatusOK)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// Dispatch handles one update and returns the Bot API method to answer
// with, or nil when there is nothing to send
func (h *Handler) Dispatch(ctx context.Context, update *telegram.Update) any {
	switch {
	case update.Message != nil:
		if reply := h.handleMessage(ctx, update.Message); reply != nil {
			return reply
		}
	case update.InlineQuery != nil:
		if answer := h.handleInlineQuery(ctx, update.InlineQuery); answer != nil {
			return answer
		}
	case update.ChosenInlineResult != nil:
		h.recorder.RecordResult(ctx, update.ChosenInlineResult.ResultID)
	}
	return nil
}

// RegisterRoutes registers the webhook route on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhook", h.requireSecretToken(), h.Webhook)
}

// requireSecretToken rejects requests that do not carry the configured
// secret token. With no token configured every request passes.
func (h *Handler) requireSecretToken() gin.HandlerFunc {
	want := []byte(h.cfg.SecretToken)
	return func(c *gin.Context) {
		if len(want) == 0 {
			c.Next()
			return
		}
		got := []byte(c.GetHeader(telegram.SecretTokenHeader))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			h.log.WarnContext(c.Request.Context(), "webhook request with a bad secret token", "remote", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid secret token"})
			return
		}
		c.Next()
	}
}
