package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"story-server/internal/assets"
	"story-server/internal/models"
	"story-server/internal/repository"
	"story-server/internal/service"
)

// maxUploadSize ограничивает размер загружаемого изображения истории.
const maxUploadSize = 10 << 20 // 10 MiB

// Handler связывает HTTP-слой с сервисами.
type Handler struct {
	stories   *service.StoryService
	scenes    *service.SceneService
	sessions  *service.SessionService
	settings  *service.SettingsService
	playlists *service.PlaylistService

	storyRepo    repository.StoryRepository
	sceneRepo    repository.StorySceneRepository
	revisionRepo repository.StoryRevisionRepository

	store  *assets.Store
	logger *zap.Logger
}

// NewHandler создает HTTP-обработчик со всеми зависимостями.
func NewHandler(
	stories *service.StoryService,
	scenes *service.SceneService,
	sessions *service.SessionService,
	settings *service.SettingsService,
	playlists *service.PlaylistService,
	storyRepo repository.StoryRepository,
	sceneRepo repository.StorySceneRepository,
	revisionRepo repository.StoryRevisionRepository,
	store *assets.Store,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		stories:      stories,
		scenes:       scenes,
		sessions:     sessions,
		settings:     settings,
		playlists:    playlists,
		storyRepo:    storyRepo,
		sceneRepo:    sceneRepo,
		revisionRepo: revisionRepo,
		store:        store,
		logger:       logger.Named("Handler"),
	}
}

// parseIDParam читает UUID из path-параметра.
func parseIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: некорректный идентификатор %s", models.ErrInvalidInput, name)
	}
	return id, nil
}

// loadStory достает историю и проверяет право доступа.
// Владелец и администратор видят историю всегда, остальные - только
// опубликованную (и то лишь на чтение).
func (h *Handler) loadStory(c *gin.Context, readOnly bool) (*models.Story, error) {
	storyID, err := parseIDParam(c, "id")
	if err != nil {
		return nil, err
	}

	story, err := h.storyRepo.GetByID(c.Request.Context(), storyID)
	if err != nil {
		return nil, err
	}

	userID, ok := getUserID(c)
	if !ok {
		return nil, models.ErrUnauthorized
	}
	if story.UserID == userID || isAdmin(c) {
		return story, nil
	}
	if readOnly && story.IsPublished {
		return story, nil
	}
	return nil, models.ErrForbidden
}

// readUploadedImage извлекает файл изображения из multipart-формы.
// Отсутствие файла не считается ошибкой.
func readUploadedImage(c *gin.Context) (data []byte, ext string, err error) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("%w: ошибка чтения изображения", models.ErrInvalidInput)
	}
	if fileHeader.Size > maxUploadSize {
		return nil, "", fmt.Errorf("%w: изображение больше 10 МБ", models.ErrInvalidInput)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, "", fmt.Errorf("ошибка открытия изображения: %w", err)
	}
	defer file.Close()

	data, err = io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("ошибка чтения изображения: %w", err)
	}
	if int64(len(data)) > maxUploadSize {
		return nil, "", fmt.Errorf("%w: изображение больше 10 МБ", models.ErrInvalidInput)
	}

	ext = filepath.Ext(fileHeader.Filename)
	if ext == "" {
		ext = ".png"
	}
	return data, ext, nil
}
