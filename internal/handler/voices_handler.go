package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"story-server/internal/ai"
)

// ListVoices возвращает каталог голосов озвучки,
// опционально фильтруя по языку (?language=en-US).
func (h *Handler) ListVoices(c *gin.Context) {
	voices := ai.AvailableVoices(c.Query("language"))
	c.JSON(http.StatusOK, gin.H{"voices": voices})
}
