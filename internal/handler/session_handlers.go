package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"story-server/internal/models"
)

// StartSession открывает сессию прослушивания истории.
func (h *Handler) StartSession(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		handleServiceError(c, models.ErrUnauthorized)
		return
	}

	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}

	session, err := h.sessions.Start(c.Request.Context(), userID, req.StoryID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// EndSession закрывает сессию. Длительность считается на сервере,
// повторное закрытие отклоняется.
func (h *Handler) EndSession(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		handleServiceError(c, models.ErrUnauthorized)
		return
	}

	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		handleServiceError(c, err)
		return
	}

	var req EndSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		handleServiceError(c, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}

	endedAt := time.Time{}
	if req.EndedAt != nil {
		endedAt = *req.EndedAt
	}

	session, err := h.sessions.End(c.Request.Context(), userID, sessionID, endedAt, req.Completed)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// ListSessions возвращает сессии пользователя, новые сверху.
func (h *Handler) ListSessions(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		handleServiceError(c, models.ErrUnauthorized)
		return
	}

	sessions, err := h.sessions.ListForUser(c.Request.Context(), userID,
		queryInt(c, "limit", 20), queryInt(c, "offset", 0))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}
