package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"story-server/internal/models"
)

// ListStoryScenes возвращает сцены истории по порядку.
func (h *Handler) ListStoryScenes(c *gin.Context) {
	story, err := h.loadStory(c, true)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	scenes, err := h.sceneRepo.ListByStory(c.Request.Context(), story.ID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.sceneResponses(scenes))
}

// GetScene возвращает одну сцену с проверкой доступа через родительскую историю.
func (h *Handler) GetScene(c *gin.Context) {
	scene, _, err := h.loadScene(c, true)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSceneResponse(scene, h.store))
}

// AddScene вручную добавляет сцену к истории.
func (h *Handler) AddScene(c *gin.Context) {
	story, err := h.loadStory(c, false)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	var req AddSceneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}

	scene, err := h.scenes.AddScene(c.Request.Context(), story, req.SceneNumber, req.SceneText)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSceneResponse(scene, h.store))
}

// UploadSceneImage принимает multipart-форму с полем image и привязывает
// изображение к сцене, создавая сцену при необходимости.
func (h *Handler) UploadSceneImage(c *gin.Context) {
	story, err := h.loadStory(c, false)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	sceneNumber, err := strconv.Atoi(c.Param("scene_number"))
	if err != nil {
		handleServiceError(c, fmt.Errorf("%w: некорректный номер сцены", models.ErrInvalidInput))
		return
	}

	imageData, ext, err := readUploadedImage(c)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if len(imageData) == 0 {
		handleServiceError(c, fmt.Errorf("%w: поле image обязательно", models.ErrInvalidInput))
		return
	}

	scene, err := h.scenes.UploadSceneImage(c.Request.Context(), story, sceneNumber, imageData, ext)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSceneResponse(scene, h.store))
}

// RegenerateSceneImage генерирует новую иллюстрацию для сцены.
func (h *Handler) RegenerateSceneImage(c *gin.Context) {
	scene, _, err := h.loadScene(c, false)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	if err := h.scenes.RegenerateSceneImage(c.Request.Context(), scene); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSceneResponse(scene, h.store))
}

// DeleteScene удаляет сцену истории.
func (h *Handler) DeleteScene(c *gin.Context) {
	scene, _, err := h.loadScene(c, false)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	if err := h.sceneRepo.Delete(c.Request.Context(), scene.ID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// loadScene достает сцену и проверяет доступ к ее истории.
func (h *Handler) loadScene(c *gin.Context, readOnly bool) (*models.StoryScene, *models.Story, error) {
	sceneID, err := parseIDParam(c, "id")
	if err != nil {
		return nil, nil, err
	}

	scene, err := h.sceneRepo.GetByID(c.Request.Context(), sceneID)
	if err != nil {
		return nil, nil, err
	}

	story, err := h.storyRepo.GetByID(c.Request.Context(), scene.StoryID)
	if err != nil {
		return nil, nil, err
	}

	userID, ok := getUserID(c)
	if !ok {
		return nil, nil, models.ErrUnauthorized
	}
	if story.UserID == userID || isAdmin(c) {
		return scene, story, nil
	}
	if readOnly && story.IsPublished {
		return scene, story, nil
	}
	return nil, nil, models.ErrForbidden
}
