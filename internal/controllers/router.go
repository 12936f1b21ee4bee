package controllers

import (
	"net/http"

	"github.com/fsdevblog/snipshare/internal/config"
	"github.com/fsdevblog/snipshare/internal/controllers/middlewares"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterParams зависимости роутера.
type RouterParams struct {
	SnippetService SnippetStore
	ImageService   ImageStore
	SessionService SessionStore
	StatsService   StatsProvider
	PingService    ConnectionChecker
	AppConf        config.Config
	Logger         *zap.Logger
}

// imagesContentPrefix ответы с содержимым изображений не сжимаются.
const imagesContentPrefix = "/api/images/"

// SetupRouter создает gin роутер со всеми маршрутами API.
func SetupRouter(params RouterParams) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestIDMiddleware())
	r.Use(middlewares.LoggerMiddleware(params.Logger))
	r.Use(cors.New(corsConfig(params.AppConf.AllowedOrigins)))
	r.Use(middlewares.GzipMiddleware(imagesContentPrefix))

	baseURL := params.AppConf.BaseURL

	if params.PingService != nil {
		pingController := NewPingController(params.PingService)
		r.GET("/ping", pingController.Ping)
		r.HEAD("/ping", pingController.Ping)
	}

	api := r.Group("/api")

	snippetController := NewSnippetController(params.SnippetService, baseURL)
	api.POST("/snippets", snippetController.Create)
	api.GET("/snippets", snippetController.Recent)
	api.GET("/snippets/:id", snippetController.View)

	imageController := NewImageController(params.ImageService, baseURL)
	api.POST("/upload-image", imageController.Upload)
	api.GET("/images/:id/view", imageController.View)
	api.GET("/images/:id/download", imageController.Download)

	sessionController := NewSessionController(params.SessionService, params.ImageService, baseURL)
	api.POST("/sessions", sessionController.Create)
	api.GET("/sessions/:id", sessionController.Get)
	api.POST("/sessions/:id/snippets", sessionController.AddSnippet)
	api.POST("/sessions/:id/images", sessionController.AddImage)
	api.DELETE("/sessions/:id/snippets/:sid", sessionController.RemoveSnippet)
	api.DELETE("/sessions/:id/images/:iid", sessionController.RemoveImage)

	if params.StatsService != nil {
		statsController := NewStatsController(params.StatsService)
		api.GET("/stats", statsController.Stats)
	}

	r.NoRoute(func(ctx *gin.Context) {
		abortJSON(ctx, http.StatusNotFound, "Not found")
	})
	return r
}

// corsConfig без явного списка источников разрешает запросы с любых.
func corsConfig(origins []string) cors.Config {
	conf := cors.DefaultConfig()
	if len(origins) == 0 {
		conf.AllowAllOrigins = true
	} else {
		conf.AllowOrigins = origins
	}
	conf.AddAllowHeaders("If-None-Match", middlewares.RequestIDHeader)
	conf.AddExposeHeaders("ETag", "Content-Disposition", middlewares.RequestIDHeader)
	return conf
}
