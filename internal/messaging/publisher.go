package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Типы событий жизненного цикла истории.
const (
	EventStoryGenerated   = "story.generated"
	EventStoryAudioReady  = "story.audio_ready"
	EventStoryScenesReady = "story.scenes_ready"
)

// StoryEvent - сообщение о завершении этапа пайплайна истории.
// Консьюмеры (уведомления, аналитика) подписываются по routing key.
type StoryEvent struct {
	Type      string    `json:"type"`
	StoryID   uuid.UUID `json:"story_id"`
	UserID    uuid.UUID `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// EventPublisher публикует события историй. Публикация fire-and-forget:
// отказ брокера не должен ронять пайплайн генерации.
type EventPublisher interface {
	PublishStoryEvent(ctx context.Context, event StoryEvent) error
	Close() error
}

// --- Реализация для RabbitMQ ---
type rabbitMQEventPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger
}

// NewRabbitMQEventPublisher создает паблишер событий историй.
func NewRabbitMQEventPublisher(conn *amqp.Connection, exchange string, logger *zap.Logger) (EventPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("event publisher: не удалось открыть канал: %w", err)
	}

	// Topic exchange: консьюмеры фильтруют по "story.*" или конкретному типу.
	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("event publisher: не удалось объявить exchange '%s': %w", exchange, err)
	}

	logger.Info("RabbitMQEventPublisher инициализирован", zap.String("exchange", exchange))
	return &rabbitMQEventPublisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		logger:   logger.Named("event_publisher"),
	}, nil
}

func (p *rabbitMQEventPublisher) PublishStoryEvent(ctx context.Context, event StoryEvent) error {
	if p.channel == nil {
		p.logger.Error("Канал RabbitMQ не инициализирован (nil)")
		return errors.New("канал RabbitMQ не инициализирован")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Ошибка маршалинга StoryEvent",
			zap.String("type", event.Type),
			zap.String("story_id", event.StoryID.String()),
			zap.Error(err))
		return fmt.Errorf("ошибка подготовки события: %w", err)
	}

	// Устанавливаем таймаут на публикацию
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		event.Type, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    event.Timestamp,
			AppId:        "story-server",
		},
	)
	if err != nil {
		p.logger.Error("Ошибка публикации события",
			zap.String("exchange", p.exchange),
			zap.String("type", event.Type),
			zap.String("story_id", event.StoryID.String()),
			zap.Error(err))
		return fmt.Errorf("ошибка публикации в exchange %s: %w", p.exchange, err)
	}

	p.logger.Debug("Событие опубликовано",
		zap.String("type", event.Type),
		zap.String("story_id", event.StoryID.String()))
	return nil
}

// Close закрывает канал RabbitMQ.
func (p *rabbitMQEventPublisher) Close() error {
	if p.channel != nil {
		p.logger.Info("Закрытие канала RabbitMQ паблишера...")
		return p.channel.Close()
	}
	return nil
}

// noopEventPublisher используется, когда брокер не сконфигурирован.
type noopEventPublisher struct{}

// NewNoopEventPublisher возвращает паблишер, который ничего не делает.
func NewNoopEventPublisher() EventPublisher {
	return noopEventPublisher{}
}

func (noopEventPublisher) PublishStoryEvent(ctx context.Context, event StoryEvent) error {
	return nil
}

func (noopEventPublisher) Close() error { return nil }
