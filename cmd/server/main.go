package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.uber.org/zap"

	"story-server/internal/ai"
	"story-server/internal/assets"
	"story-server/internal/audio"
	"story-server/internal/auth"
	"story-server/internal/config"
	"story-server/internal/database"
	"story-server/internal/handler"
	"story-server/internal/messaging"
	"story-server/internal/repository"
	"story-server/internal/service"
	"story-server/internal/ws"
	pkgdatabase "story-server/pkg/database"
	pkglogger "story-server/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("Failed to load config", zap.Error(err))
	}

	logger, err := pkglogger.New(cfg.LoggerConfig())
	if err != nil {
		zap.NewExample().Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logger)

	// WebSocket-слой и мигратор логируют через zerolog
	zlog := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// --- PostgreSQL ---
	db, err := pkgdatabase.New(pkgdatabase.Config{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		DBName:   cfg.DB.Name,
		SSLMode:  cfg.DB.SSLMode,
		MaxConns: cfg.DB.MaxConns,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer db.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 2*time.Minute)
	if err := database.ApplyMigrations(migrateCtx, db.Pool); err != nil {
		cancelMigrate()
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	cancelMigrate()

	// --- Redis (блокировки генерации) ---
	// Без Redis сервис продолжает работать, но без защиты от
	// конкурентных генераций одной истории.
	var guard repository.GenerationGuard
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Password: cfg.Redis.Password,
	})
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unavailable, generation locking disabled", zap.Error(err))
		guard = repository.NewNoopGenerationGuard()
	} else {
		guard = repository.NewRedisGenerationGuard(redisClient, logger)
		defer redisClient.Close()
	}
	cancelPing()

	// --- RabbitMQ (события жизненного цикла историй) ---
	publisher := messaging.NewNoopEventPublisher()
	if cfg.RabbitMQ.Enabled() {
		mqConn, err := amqp.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			logger.Warn("RabbitMQ unavailable, story events disabled", zap.Error(err))
		} else {
			defer mqConn.Close()
			publisher, err = messaging.NewRabbitMQEventPublisher(mqConn, cfg.RabbitMQ.Exchange, logger)
			if err != nil {
				logger.Fatal("Failed to create RabbitMQ publisher", zap.Error(err))
			}
		}
	}
	defer publisher.Close()

	// --- Генеративные провайдеры и хранилище ассетов ---
	providers, err := ai.NewProviders(cfg.AI, logger)
	if err != nil {
		logger.Fatal("Failed to initialize AI providers", zap.Error(err))
	}

	transcoder := audio.NewFFmpegTranscoder(cfg.Assets.FFmpegPath, logger)
	encoder := audio.NewEncoder(transcoder, logger)
	store := assets.NewStore(cfg.Assets.MediaRoot, cfg.Assets.PublicBaseURL, logger)

	// --- Репозитории ---
	storyRepo := repository.NewPgStoryRepository(db.Pool, logger)
	revisionRepo := repository.NewPgStoryRevisionRepository(db.Pool, logger)
	sceneRepo := repository.NewPgStorySceneRepository(db.Pool, logger)
	sessionRepo := repository.NewPgStorySessionRepository(db.Pool, logger)
	settingsRepo := repository.NewPgSettingsRepository(db.Pool, logger)
	playlistRepo := repository.NewPgPlaylistRepository(db.Pool, logger)

	// --- Сервисы ---
	audioSvc := service.NewAudioService(providers.Speech, encoder, store, storyRepo, logger)
	sceneSvc := service.NewSceneService(providers.Images, store, sceneRepo, logger)
	storySvc := service.NewStoryService(
		storyRepo, revisionRepo, settingsRepo,
		providers.Text, providers.Vision,
		audioSvc, sceneSvc, store, guard, publisher, logger,
	)
	sessionSvc := service.NewSessionService(sessionRepo, storyRepo, logger)
	settingsSvc := service.NewSettingsService(settingsRepo, logger)
	playlistSvc := service.NewPlaylistService(playlistRepo, storyRepo, logger)

	// --- HTTP и WebSocket ---
	validator := auth.NewValidator(cfg.JWTSecret)

	if cfg.WSSkipOwnershipCheck && cfg.IsProduction() {
		logger.Fatal("WS_SKIP_OWNERSHIP_CHECK must not be enabled in production")
	}
	voiceHandler := ws.NewHandler(
		storyRepo, sessionRepo, validator,
		providers.Text, providers.Speech,
		cfg.WSSkipOwnershipCheck, zlog,
	)

	h := handler.NewHandler(
		storySvc, sceneSvc, sessionSvc, settingsSvc, playlistSvc,
		storyRepo, sceneRepo, revisionRepo,
		store, logger,
	)
	router := handler.NewRouter(cfg, h, voiceHandler, validator, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // генерация истории выполняется синхронно
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server listen error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
