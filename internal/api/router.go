package api

import (
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	"github.com/qs3c/folio_comments/config"
	"github.com/qs3c/folio_comments/internal/api/handler"
	"github.com/qs3c/folio_comments/internal/api/middleware"
)

type Router struct {
	commentHandler *handler.CommentHandler
	healthHandler  *handler.HealthHandler
	cfg            *config.Config
}

func NewRouter(
	commentHandler *handler.CommentHandler,
	healthHandler *handler.HealthHandler,
	cfg *config.Config,
) *Router {
	return &Router{
		commentHandler: commentHandler,
		healthHandler:  healthHandler,
		cfg:            cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	if r.cfg.Sentry.DSN != "" {
		engine.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	engine.Use(middleware.RequestLogger())
	engine.Use(middleware.CORS(r.cfg.CORS))
	engine.Use(middleware.Timeout(time.Duration(r.cfg.Server.RequestTimeoutMs) * time.Millisecond))

	engine.GET("/healthz", r.healthHandler.Check)

	api := engine.Group("/api")
	{
		// 评论 - 公开读取（可选认证）
		commentsPublic := api.Group("/comments")
		commentsPublic.Use(middleware.OptionalAuth(r.cfg.JWT))
		{
			commentsPublic.GET("", r.commentHandler.List)
		}

		// 评论 - 需要认证
		commentsAuth := api.Group("/comments")
		commentsAuth.Use(middleware.Auth(r.cfg.JWT))
		{
			commentsAuth.POST("", r.commentHandler.Create)
			commentsAuth.DELETE("", r.commentHandler.Delete)
			commentsAuth.DELETE("/:id", r.commentHandler.Delete)
			commentsAuth.POST("/react", r.commentHandler.React)
		}
	}

	return engine
}
