package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"story-server/internal/ai"
	"story-server/internal/auth"
	"story-server/internal/models"
	"story-server/internal/repository"
)

const maxInboundMessageSize = 1 << 20 // голосовые сообщения приходят base64

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Origin проверяется CORS-слоем HTTP API; токен обязателен ниже.
		return true
	},
}

// Handler устанавливает голосовые сессии по историям.
type Handler struct {
	storyRepo   repository.StoryRepository
	sessionRepo repository.StorySessionRepository
	validator   *auth.Validator
	text        ai.TextGenerator
	speech      ai.SpeechSynthesizer
	logger      zerolog.Logger

	// skipOwnershipCheck ослабляет проверку владения до предупреждения.
	// Только для отладочных окружений, в продакшене всегда false.
	skipOwnershipCheck bool
}

// NewHandler создает обработчик голосовых сессий.
func NewHandler(
	storyRepo repository.StoryRepository,
	sessionRepo repository.StorySessionRepository,
	validator *auth.Validator,
	text ai.TextGenerator,
	speech ai.SpeechSynthesizer,
	skipOwnershipCheck bool,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		storyRepo:          storyRepo,
		sessionRepo:        sessionRepo,
		validator:          validator,
		text:               text,
		speech:             speech,
		skipOwnershipCheck: skipOwnershipCheck,
		logger:             logger.With().Str("component", "VoiceHandler").Logger(),
	}
}

// ServeVoiceSession обрабатывает GET /ws/stories/:id/voice.
// Токен передается query-параметром 'token', так как браузерный
// WebSocket API не позволяет выставить заголовок Authorization.
func (h *Handler) ServeVoiceSession(c *gin.Context) {
	storyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid story id"})
		return
	}

	claims, err := h.validator.ValidateToken(c.Query("token"))
	if err != nil {
		h.logger.Warn().Err(err).Msg("Voice session token rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	story, storyErr := h.storyRepo.GetByID(c.Request.Context(), storyID)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}
	conn.SetReadLimit(maxInboundMessageSize)

	if storyErr != nil {
		h.closeWithCode(conn, CloseNotFound, "story not found")
		return
	}

	if story.UserID != claims.UserID && !models.HasRole(claims.Roles, "admin") {
		if h.skipOwnershipCheck {
			h.logger.Warn().
				Str("storyID", storyID.String()).
				Str("userID", claims.UserID.String()).
				Msg("Ownership check skipped (debug mode)")
		} else {
			h.closeWithCode(conn, CloseForbidden, "forbidden")
			return
		}
	}

	h.logger.Info().
		Str("storyID", storyID.String()).
		Str("userID", claims.UserID.String()).
		Msg("Voice session established")

	record := h.startSessionRecord(c, claims.UserID, story.ID)

	session := NewSession(story, conn, h.text, h.speech, h.logger)
	session.Run(c.Request.Context())

	h.endSessionRecord(record)
}

// startSessionRecord фиксирует начало голосовой сессии в истории
// прослушиваний. Ошибка записи не мешает самой сессии.
func (h *Handler) startSessionRecord(c *gin.Context, userID, storyID uuid.UUID) *models.StorySession {
	record := &models.StorySession{
		UserID:    userID,
		StoryID:   storyID,
		StartedAt: time.Now(),
	}
	if err := h.sessionRepo.Create(c.Request.Context(), record); err != nil {
		h.logger.Warn().Err(err).
			Str("storyID", storyID.String()).
			Msg("Failed to record voice session start")
		return nil
	}
	return record
}

// endSessionRecord закрывает запись сессии при разрыве соединения.
// Запрос уже отменен, поэтому используется свой контекст.
func (h *Handler) endSessionRecord(record *models.StorySession) {
	if record == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := h.sessionRepo.End(ctx, record.ID, time.Now(), false); err != nil {
		h.logger.Warn().Err(err).
			Str("sessionID", record.ID.String()).
			Msg("Failed to record voice session end")
	}
}

func (h *Handler) closeWithCode(conn *websocket.Conn, code int, reason string) {
	message := websocket.FormatCloseMessage(code, reason)
	deadline := time.Now().Add(5 * time.Second)
	if err := conn.WriteControl(websocket.CloseMessage, message, deadline); err != nil {
		h.logger.Debug().Err(err).Msg("Failed to send close frame")
	}
	_ = conn.Close()
}
