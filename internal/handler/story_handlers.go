package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"story-server/internal/ai"
	"story-server/internal/models"
	"story-server/internal/repository"
	"story-server/internal/service"
)

// knownTemplates - допустимые значения жанрового шаблона.
var knownTemplates = map[string]models.StoryTemplate{
	string(models.TemplateAdventure):   models.TemplateAdventure,
	string(models.TemplateFantasy):     models.TemplateFantasy,
	string(models.TemplateSciFi):       models.TemplateSciFi,
	string(models.TemplateMystery):     models.TemplateMystery,
	string(models.TemplateEducational): models.TemplateEducational,
}

func parseTemplate(raw string) (models.StoryTemplate, error) {
	if raw == "" {
		return models.TemplateAdventure, nil
	}
	template, ok := knownTemplates[strings.ToLower(raw)]
	if !ok {
		return "", fmt.Errorf("%w: неизвестный шаблон %q", models.ErrInvalidInput, raw)
	}
	return template, nil
}

// ListStories возвращает истории пользователя с поиском и пагинацией.
func (h *Handler) ListStories(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		handleServiceError(c, models.ErrUnauthorized)
		return
	}

	filter := repository.StoryFilter{
		Search:   c.Query("search"),
		Ordering: c.Query("ordering"),
		Limit:    queryInt(c, "limit", 20),
		Offset:   queryInt(c, "offset", 0),
	}
	// Поддерживается и постраничная адресация page/page_size
	if page := queryInt(c, "page", 0); page > 0 {
		filter.Limit = queryInt(c, "page_size", 20)
		filter.Offset = (page - 1) * filter.Limit
	}

	stories, total, err := h.storyRepo.ListByUser(c.Request.Context(), userID, filter)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newStoryListResponse(stories, total, filter.Limit, filter.Offset, h.store))
}

// GetStory возвращает историю. Чужие истории доступны только опубликованные.
func (h *Handler) GetStory(c *gin.Context) {
	story, err := h.loadStory(c, true)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newStoryResponse(story, h.store))
}

// CreateStory создает историю и синхронно запускает генерацию.
// Принимает как JSON, так и multipart-форму с полем image.
func (h *Handler) CreateStory(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		handleServiceError(c, models.ErrUnauthorized)
		return
	}

	var req CreateStoryRequest
	var imageData []byte
	var imageExt string

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		req.Title = c.PostForm("title")
		req.Prompt = c.PostForm("prompt")
		req.Template = c.PostForm("template")
		if voiceID := c.PostForm("voice_id"); voiceID != "" {
			req.VoiceID = &voiceID
		}
		var err error
		imageData, imageExt, err = readUploadedImage(c)
		if err != nil {
			handleServiceError(c, err)
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}

	template, err := parseTemplate(req.Template)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if req.VoiceID != nil && !ai.IsKnownVoice(*req.VoiceID) {
		handleServiceError(c, fmt.Errorf("%w: неизвестный голос %q", models.ErrInvalidInput, *req.VoiceID))
		return
	}

	story, err := h.stories.CreateStory(c.Request.Context(), userID, service.CreateStoryInput{
		Title:     req.Title,
		Prompt:    req.Prompt,
		Template:  template,
		VoiceID:   req.VoiceID,
		ImageData: imageData,
		ImageExt:  imageExt,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newStoryResponse(story, h.store))
}

// UpdateStory обновляет заголовок и/или текст истории.
// Правка текста фиксирует предыдущую версию в ревизиях.
func (h *Handler) UpdateStory(c *gin.Context) {
	story, err := h.loadStory(c, false)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	var req UpdateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}
	if req.Title == nil && req.StoryText == nil {
		handleServiceError(c, fmt.Errorf("%w: нечего обновлять", models.ErrInvalidInput))
		return
	}

	actorID, _ := getUserID(c)
	ctx := c.Request.Context()

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			handleServiceError(c, fmt.Errorf("%w: пустой заголовок", models.ErrInvalidInput))
			return
		}
		if err := h.storyRepo.UpdateTitle(ctx, story.ID, title); err != nil {
			handleServiceError(c, err)
			return
		}
		story.Title = title
	}

	if req.StoryText != nil {
		if err := h.stories.UpdateText(ctx, story, actorID, *req.StoryText); err != nil {
			handleServiceError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, newStoryResponse(story, h.store))
}

// DeleteStory удаляет историю вместе с ассетами.
func (h *Handler) DeleteStory(c *gin.Context) {
	story, err := h.loadStory(c, false)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	if err := h.stories.DeleteStory(c.Request.Context(), story); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RegenerateStory перегенерирует текст с новым промптом или модификацией.
func (h *Handler) RegenerateStory(c *gin.Context) {
	story, err := h.loadStory(c, false)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	var req RegenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		handleServiceError(c, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}

	actorID, _ := getUserID(c)
	ok, err := h.stories.Regenerate(c.Request.Context(), story, actorID, service.RegenerateInput{
		NewPrompt:     req.NewPrompt,
		Modifications: req.Modifications,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if !ok {
		h.logger.Warn("Story regeneration produced no text", zap.String("story_id", story.ID.String()))
	}

	c.JSON(http.StatusOK, newStoryResponse(story, h.store))
}

// GenerateStoryAudio озвучивает текст истории, опционально меняя голос.
func (h *Handler) GenerateStoryAudio(c *gin.Context) {
	story, err := h.loadStory(c, false)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	var req GenerateAudioRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		handleServiceError(c, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}

	if err := h.stories.GenerateAudio(c.Request.Context(), story, req.VoiceID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newStoryResponse(story, h.store))
}

// GenerateStoryScenes разбивает историю на сцены и иллюстрирует каждую заново.
func (h *Handler) GenerateStoryScenes(c *gin.Context) {
	story, err := h.loadStory(c, false)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	scenes, err := h.stories.GenerateScenes(c.Request.Context(), story)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.sceneResponses(scenes))
}

// InitializeStoryScenes создает недостающие сцены, не трогая существующие
// иллюстрации.
func (h *Handler) InitializeStoryScenes(c *gin.Context) {
	story, err := h.loadStory(c, false)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	scenes, err := h.scenes.InitializeScenes(c.Request.Context(), story)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.sceneResponses(scenes))
}

// PublishStory переключает публичную видимость истории.
func (h *Handler) PublishStory(c *gin.Context) {
	story, err := h.loadStory(c, false)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}

	if err := h.storyRepo.SetPublished(c.Request.Context(), story.ID, req.IsPublished); err != nil {
		handleServiceError(c, err)
		return
	}
	story.IsPublished = req.IsPublished
	c.JSON(http.StatusOK, newStoryResponse(story, h.store))
}

// ListStoryRevisions возвращает историю правок текста, новые сверху.
func (h *Handler) ListStoryRevisions(c *gin.Context) {
	story, err := h.loadStory(c, false)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	revisions, err := h.revisionRepo.ListByStory(c.Request.Context(), story.ID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revisions": revisions})
}

func (h *Handler) sceneResponses(scenes []*models.StoryScene) []SceneResponse {
	responses := make([]SceneResponse, 0, len(scenes))
	for _, scene := range scenes {
		responses = append(responses, newSceneResponse(scene, h.store))
	}
	return responses
}

// queryInt читает неотрицательный целочисленный query-параметр.
func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return def
	}
	return value
}
