package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"story-server/internal/ai"
	"story-server/internal/models"
)

// ErrorResponse - стандартный формат ошибки API.
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleServiceError преобразует ошибку сервисного слоя в HTTP-ответ
// и прерывает обработку запроса.
func handleServiceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrStoryNotFound),
		errors.Is(err, models.ErrSceneNotFound),
		errors.Is(err, models.ErrSessionNotFound),
		errors.Is(err, models.ErrPlaylistNotFound):
		status = http.StatusNotFound
		message = err.Error()

	case errors.Is(err, models.ErrUnauthorized),
		errors.Is(err, models.ErrTokenInvalid),
		errors.Is(err, models.ErrTokenMalformed),
		errors.Is(err, models.ErrTokenExpired):
		status = http.StatusUnauthorized
		message = err.Error()

	case errors.Is(err, models.ErrForbidden):
		status = http.StatusForbidden
		message = err.Error()

	case errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, models.ErrBadRequest),
		errors.Is(err, models.ErrEmptyText),
		errors.Is(err, models.ErrStoryTextMissing),
		errors.Is(err, models.ErrNoScenesParsed):
		status = http.StatusBadRequest
		message = err.Error()

	case errors.Is(err, models.ErrGenerationInProgress),
		errors.Is(err, models.ErrSceneExists):
		status = http.StatusConflict
		message = err.Error()

	case errors.Is(err, models.ErrSessionAlreadyEnded):
		status = http.StatusConflict
		message = err.Error()

	case errors.Is(err, models.ErrNoAudioProduced),
		errors.Is(err, models.ErrAllImageProvidersDown),
		errors.Is(err, ai.ErrAIGenerationFailed),
		errors.Is(err, ai.ErrImageGenerationFailed),
		errors.Is(err, ai.ErrSpeechSynthesisFailed):
		status = http.StatusBadGateway
		message = err.Error()
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: message})
}
