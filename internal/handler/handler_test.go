package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"story-server/internal/assets"
	"story-server/internal/models"
	"story-server/internal/repository/mocks"
)

func newTestRouter(t *testing.T, h *Handler, userID uuid.UUID, roles []string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(ctxUserIDKey, userID)
		c.Set(ctxRolesKey, roles)
	})
	router.GET("/api/stories/:id", h.GetStory)
	router.POST("/api/stories/:id/publish", h.PublishStory)
	router.GET("/api/voices", h.ListVoices)
	return router
}

func newTestHandler(storyRepo *mocks.StoryRepository) *Handler {
	store := assets.NewStore("/tmp/story-server-test-media", "/media", zap.NewNop())
	return &Handler{
		storyRepo: storyRepo,
		store:     store,
		logger:    zap.NewNop(),
	}
}

func TestGetStory_OwnerSeesUnpublished(t *testing.T) {
	userID := uuid.New()
	audioPath := "2026/01/audio_x.mp3"
	story := &models.Story{ID: uuid.New(), UserID: userID, Title: "Mine", AudioPath: &audioPath}

	storyRepo := new(mocks.StoryRepository)
	storyRepo.On("GetByID", mock.Anything, story.ID).Return(story, nil)

	router := newTestRouter(t, newTestHandler(storyRepo), userID, nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stories/"+story.ID.String(), nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp StoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Mine", resp.Title)
	assert.Equal(t, "/media/"+audioPath, resp.AudioURL)
}

func TestGetStory_StrangerForbiddenForUnpublished(t *testing.T) {
	story := &models.Story{ID: uuid.New(), UserID: uuid.New(), Title: "Private"}

	storyRepo := new(mocks.StoryRepository)
	storyRepo.On("GetByID", mock.Anything, story.ID).Return(story, nil)

	router := newTestRouter(t, newTestHandler(storyRepo), uuid.New(), nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stories/"+story.ID.String(), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetStory_StrangerSeesPublished(t *testing.T) {
	story := &models.Story{ID: uuid.New(), UserID: uuid.New(), Title: "Public", IsPublished: true}

	storyRepo := new(mocks.StoryRepository)
	storyRepo.On("GetByID", mock.Anything, story.ID).Return(story, nil)

	router := newTestRouter(t, newTestHandler(storyRepo), uuid.New(), nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stories/"+story.ID.String(), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetStory_InvalidIDIsBadRequest(t *testing.T) {
	router := newTestRouter(t, newTestHandler(new(mocks.StoryRepository)), uuid.New(), nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stories/not-a-uuid", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetStory_NotFound(t *testing.T) {
	storyID := uuid.New()
	storyRepo := new(mocks.StoryRepository)
	storyRepo.On("GetByID", mock.Anything, storyID).Return(nil, models.ErrStoryNotFound)

	router := newTestRouter(t, newTestHandler(storyRepo), uuid.New(), nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stories/"+storyID.String(), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPublishStory_AdminCanPublishForeignStory(t *testing.T) {
	story := &models.Story{ID: uuid.New(), UserID: uuid.New(), Title: "Foreign"}

	storyRepo := new(mocks.StoryRepository)
	storyRepo.On("GetByID", mock.Anything, story.ID).Return(story, nil)
	storyRepo.On("SetPublished", mock.Anything, story.ID, true).Return(nil)

	router := newTestRouter(t, newTestHandler(storyRepo), uuid.New(), []string{RoleAdmin})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/stories/"+story.ID.String()+"/publish",
		strings.NewReader(`{"is_published": true}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	storyRepo.AssertExpectations(t)
}

func TestListVoices(t *testing.T) {
	router := newTestRouter(t, newTestHandler(new(mocks.StoryRepository)), uuid.New(), nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/voices", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Voices []struct {
			ID string `json:"id"`
		} `json:"voices"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Voices)
}
