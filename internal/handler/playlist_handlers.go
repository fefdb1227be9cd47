package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"story-server/internal/models"
)

// CreatePlaylist создает плейлист пользователя.
func (h *Handler) CreatePlaylist(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		handleServiceError(c, models.ErrUnauthorized)
		return
	}

	var req PlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}

	playlist, err := h.playlists.Create(c.Request.Context(), userID, req.Name, req.Description, req.IsPublic)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, playlist)
}

// GetPlaylist возвращает плейлист владельцу или любой публичный.
func (h *Handler) GetPlaylist(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		handleServiceError(c, models.ErrUnauthorized)
		return
	}

	playlistID, err := parseIDParam(c, "id")
	if err != nil {
		handleServiceError(c, err)
		return
	}

	playlist, err := h.playlists.Get(c.Request.Context(), userID, playlistID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, playlist)
}

// ListPlaylists возвращает плейлисты пользователя.
func (h *Handler) ListPlaylists(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		handleServiceError(c, models.ErrUnauthorized)
		return
	}

	playlists, err := h.playlists.ListForUser(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"playlists": playlists})
}

// ListPublicPlaylists возвращает публичные плейлисты всех пользователей.
func (h *Handler) ListPublicPlaylists(c *gin.Context) {
	playlists, err := h.playlists.ListPublic(c.Request.Context(),
		queryInt(c, "limit", 20), queryInt(c, "offset", 0))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"playlists": playlists})
}

// UpdatePlaylist обновляет имя, описание и видимость плейлиста.
func (h *Handler) UpdatePlaylist(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		handleServiceError(c, models.ErrUnauthorized)
		return
	}

	playlistID, err := parseIDParam(c, "id")
	if err != nil {
		handleServiceError(c, err)
		return
	}

	var req PlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}

	playlist := &models.Playlist{
		ID:          playlistID,
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	}
	if err := h.playlists.Update(c.Request.Context(), userID, playlist); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, playlist)
}

// DeletePlaylist удаляет плейлист владельца.
func (h *Handler) DeletePlaylist(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		handleServiceError(c, models.ErrUnauthorized)
		return
	}

	playlistID, err := parseIDParam(c, "id")
	if err != nil {
		handleServiceError(c, err)
		return
	}

	if err := h.playlists.Delete(c.Request.Context(), userID, playlistID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddPlaylistStory добавляет историю в плейлист. Чужая история должна
// быть опубликована.
func (h *Handler) AddPlaylistStory(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		handleServiceError(c, models.ErrUnauthorized)
		return
	}

	playlistID, err := parseIDParam(c, "id")
	if err != nil {
		handleServiceError(c, err)
		return
	}

	var req AddPlaylistStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}

	if err := h.playlists.AddStory(c.Request.Context(), userID, playlistID, req.StoryID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RemovePlaylistStory убирает историю из плейлиста.
func (h *Handler) RemovePlaylistStory(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		handleServiceError(c, models.ErrUnauthorized)
		return
	}

	playlistID, err := parseIDParam(c, "id")
	if err != nil {
		handleServiceError(c, err)
		return
	}
	storyID, err := parseIDParam(c, "story_id")
	if err != nil {
		handleServiceError(c, err)
		return
	}

	if err := h.playlists.RemoveStory(c.Request.Context(), userID, playlistID, storyID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListPlaylistStories возвращает истории плейлиста в порядке добавления.
func (h *Handler) ListPlaylistStories(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		handleServiceError(c, models.ErrUnauthorized)
		return
	}

	playlistID, err := parseIDParam(c, "id")
	if err != nil {
		handleServiceError(c, err)
		return
	}

	stories, err := h.playlists.ListStories(c.Request.Context(), userID, playlistID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	responses := make([]StoryResponse, 0, len(stories))
	for _, story := range stories {
		responses = append(responses, newStoryResponse(story, h.store))
	}
	c.JSON(http.StatusOK, gin.H{"stories": responses})
}
