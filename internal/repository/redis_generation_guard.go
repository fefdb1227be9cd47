package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"story-server/internal/models"
)

// Сколько максимально может идти генерация, прежде чем замок истечет сам.
const generationLockTTL = 10 * time.Minute

var _ GenerationGuard = (*redisGenerationGuard)(nil)

// redisGenerationGuard не дает запускать две генерации одной истории
// одновременно. Замок в Redis с TTL, чтобы упавший воркер не держал
// историю заблокированной навсегда.
type redisGenerationGuard struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisGenerationGuard создает guard поверх Redis.
func NewRedisGenerationGuard(client *redis.Client, logger *zap.Logger) GenerationGuard {
	return &redisGenerationGuard{
		client: client,
		logger: logger.Named("RedisGenerationGuard"),
	}
}

func generationLockKey(storyID uuid.UUID) string {
	return fmt.Sprintf("story:generation:%s", storyID)
}

// Acquire берет замок генерации для истории. Если генерация уже идет,
// возвращает models.ErrGenerationInProgress. При недоступном Redis
// пропускает запрос: лучше редкая двойная генерация, чем отказ сервиса.
func (g *redisGenerationGuard) Acquire(ctx context.Context, storyID uuid.UUID) (func(), error) {
	key := generationLockKey(storyID)

	ok, err := g.client.SetNX(ctx, key, time.Now().Format(time.RFC3339), generationLockTTL).Result()
	if err != nil {
		g.logger.Warn("Redis unavailable, skipping generation lock",
			zap.Error(err), zap.String("storyID", storyID.String()))
		return func() {}, nil
	}
	if !ok {
		return nil, models.ErrGenerationInProgress
	}

	release := func() {
		// Снимаем замок на фоновом контексте: запрос мог быть уже отменен.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := g.client.Del(releaseCtx, key).Err(); err != nil {
			g.logger.Warn("Failed to release generation lock",
				zap.Error(err), zap.String("storyID", storyID.String()))
		}
	}
	return release, nil
}

// noopGenerationGuard используется, когда Redis не сконфигурирован.
type noopGenerationGuard struct{}

// NewNoopGenerationGuard возвращает guard, который никогда не блокирует.
func NewNoopGenerationGuard() GenerationGuard {
	return noopGenerationGuard{}
}

func (noopGenerationGuard) Acquire(ctx context.Context, storyID uuid.UUID) (func(), error) {
	return func() {}, nil
}
