package main

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/admin"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/auth"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/bot"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/config"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/feedback"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/logger"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/search"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/stickers"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/taggers"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/tags"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "github.com/mikepea/stickerdoko/api/swagger"
)

// services holds the core components, built once per process
type services struct {
	db       *gorm.DB
	secret   *auth.Secret
	issuer   *auth.Issuer
	registry *taggers.Registry
	resolver *stickers.Resolver
	tags     *tags.Service
	engine   *search.Engine
	recorder *feedback.Recorder
}

func newServices(db *gorm.DB, cfg *config.Config, log *slog.Logger) *services {
	secret := auth.NewSecret(cfg.Admin.Secret)
	registry := taggers.NewRegistry(db, secret, log.With("component", "taggers"))
	resolver := stickers.NewResolver(db, log.With("component", "stickers"))

	return &services{
		db:       db,
		secret:   secret,
		issuer:   auth.NewIssuer(secret, cfg.Admin.TokenTTL),
		registry: registry,
		resolver: resolver,
		tags:     tags.NewService(db, registry, resolver, log.With("component", "tags")),
		engine:   search.NewEngine(db, cfg.Search.Limit, log.With("component", "search")),
		recorder: feedback.NewRecorder(db, log.With("component", "feedback")),
	}
}

func newRouter(s *services, cfg *config.Config, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(logger.GinMiddleware(log.With("component", "http")), gin.Recovery())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Telegram webhook
	botHandler := bot.NewHandler(bot.Deps{
		Registry: s.registry,
		Tags:     s.tags,
		Resolver: s.resolver,
		Engine:   s.engine,
		Recorder: s.recorder,
	}, bot.Config{
		BotUsername: cfg.Telegram.BotUsername,
		SecretToken: cfg.Telegram.SecretToken,
	}, log.With("component", "bot"))
	botHandler.RegisterRoutes(r.Group("/telegram"))

	// Admin routes; the token route is public, the rest need an admin JWT
	adminHandler := admin.NewHandler(s.db, s.secret, s.issuer, s.registry, s.engine, log.With("component", "admin"))
	adminGroup := r.Group("/api/admin")
	adminHandler.RegisterPublicRoutes(adminGroup)
	adminHandler.RegisterRoutes(adminGroup.Group("", auth.AdminMiddleware(s.issuer)))

	return r
}
