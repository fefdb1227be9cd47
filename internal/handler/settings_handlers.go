package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"story-server/internal/models"
)

// GetSettings возвращает настройки генерации пользователя,
// создавая их со значениями по умолчанию при первом обращении.
func (h *Handler) GetSettings(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		handleServiceError(c, models.ErrUnauthorized)
		return
	}

	settings, err := h.settings.GetOrCreate(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSettings полностью заменяет настройки генерации пользователя.
func (h *Handler) UpdateSettings(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		handleServiceError(c, models.ErrUnauthorized)
		return
	}

	var settings models.UserStorySettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}

	updated, err := h.settings.Update(c.Request.Context(), userID, &settings)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
