package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"story-server/internal/auth"
	"story-server/internal/config"
	"story-server/internal/ws"
)

// NewRouter собирает HTTP-роутер сервиса: middleware, health check,
// раздачу медиа, REST API и WebSocket голосовых сессий.
func NewRouter(
	cfg *config.Config,
	h *Handler,
	voiceHandler *ws.Handler,
	validator *auth.Validator,
	logger *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if !cfg.IsProduction() {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(GinZapLogger(logger))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSAllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
		logger.Info("CORSAllowedOrigins not set, allowing default", zap.String("origin", "http://localhost:3000"))
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	// Сгенерированные ассеты раздаются напрямую, если публичный URL
	// указывает на этот же сервис (путь, а не внешний CDN).
	if strings.HasPrefix(cfg.Assets.PublicBaseURL, "/") {
		router.Static(cfg.Assets.PublicBaseURL, h.store.Root())
	}

	// Токен передается query-параметром, аутентификация внутри обработчика
	router.GET("/ws/stories/:id/voice", voiceHandler.ServeVoiceSession)

	h.RegisterRoutes(router, validator, logger)

	// Метрики применяются после регистрации роутов
	p := ginprometheus.NewPrometheus("gin")
	p.Use(router)

	return router
}

// RegisterRoutes регистрирует REST API под /api с JWT-аутентификацией.
func (h *Handler) RegisterRoutes(router *gin.Engine, validator *auth.Validator, logger *zap.Logger) {
	api := router.Group("/api")
	api.Use(AuthMiddleware(validator, logger))

	stories := api.Group("/stories")
	{
		stories.GET("", h.ListStories)
		stories.POST("", h.CreateStory)
		stories.GET("/:id", h.GetStory)
		stories.PATCH("/:id", h.UpdateStory)
		stories.DELETE("/:id", h.DeleteStory)
		stories.POST("/:id/regenerate", h.RegenerateStory)
		stories.POST("/:id/generate_audio", h.GenerateStoryAudio)
		stories.POST("/:id/generate_scenes", h.GenerateStoryScenes)
		stories.POST("/:id/initialize_scenes", h.InitializeStoryScenes)
		stories.POST("/:id/publish", h.PublishStory)
		stories.GET("/:id/scenes", h.ListStoryScenes)
		stories.POST("/:id/scenes", h.AddScene)
		stories.POST("/:id/scenes/:scene_number/image", h.UploadSceneImage)
		stories.GET("/:id/revisions", h.ListStoryRevisions)
	}

	scenes := api.Group("/scenes")
	{
		scenes.GET("/:id", h.GetScene)
		scenes.POST("/:id/regenerate_image", h.RegenerateSceneImage)
		scenes.DELETE("/:id", h.DeleteScene)
	}

	sessions := api.Group("/sessions")
	{
		sessions.GET("", h.ListSessions)
		sessions.POST("", h.StartSession)
		sessions.POST("/:id/end", h.EndSession)
	}

	settings := api.Group("/settings")
	{
		settings.GET("", h.GetSettings)
		settings.PUT("", h.UpdateSettings)
	}

	playlists := api.Group("/playlists")
	{
		playlists.GET("", h.ListPlaylists)
		playlists.POST("", h.CreatePlaylist)
		playlists.GET("/public", h.ListPublicPlaylists)
		playlists.GET("/:id", h.GetPlaylist)
		playlists.PUT("/:id", h.UpdatePlaylist)
		playlists.DELETE("/:id", h.DeletePlaylist)
		playlists.GET("/:id/stories", h.ListPlaylistStories)
		playlists.POST("/:id/stories", h.AddPlaylistStory)
		playlists.DELETE("/:id/stories/:story_id", h.RemovePlaylistStory)
	}

	api.GET("/voices", h.ListVoices)
}
