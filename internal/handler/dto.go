package handler

import (
	"time"

	"github.com/google/uuid"

	"story-server/internal/assets"
	"story-server/internal/models"
)

// CreateStoryRequest - тело запроса на создание истории (JSON-вариант;
// multipart-форма с изображением разбирается отдельно).
type CreateStoryRequest struct {
	Title    string  `json:"title"`
	Prompt   string  `json:"prompt" binding:"required"`
	Template string  `json:"template"`
	VoiceID  *string `json:"voice_id"`
}

// UpdateStoryRequest - частичное обновление истории.
type UpdateStoryRequest struct {
	Title     *string `json:"title"`
	StoryText *string `json:"story_text"`
}

// RegenerateRequest - параметры перегенерации текста.
type RegenerateRequest struct {
	NewPrompt     string `json:"new_prompt"`
	Modifications string `json:"modifications"`
}

// GenerateAudioRequest - запрос озвучки с опциональной сменой голоса.
type GenerateAudioRequest struct {
	VoiceID *string `json:"voice_id"`
}

// AddSceneRequest - ручное добавление сцены.
type AddSceneRequest struct {
	SceneNumber int    `json:"scene_number" binding:"required"`
	SceneText   string `json:"scene_text" binding:"required"`
}

// PublishRequest переключает видимость истории.
type PublishRequest struct {
	IsPublished bool `json:"is_published"`
}

// StartSessionRequest открывает сессию прослушивания.
type StartSessionRequest struct {
	StoryID uuid.UUID `json:"story_id" binding:"required"`
}

// EndSessionRequest закрывает сессию прослушивания.
type EndSessionRequest struct {
	EndedAt   *time.Time `json:"ended_at"`
	Completed bool       `json:"completed"`
}

// PlaylistRequest - создание/обновление плейлиста.
type PlaylistRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	IsPublic    bool   `json:"is_public"`
}

// AddPlaylistStoryRequest добавляет историю в плейлист.
type AddPlaylistStoryRequest struct {
	StoryID uuid.UUID `json:"story_id" binding:"required"`
}

// StoryResponse - история с публичными URL ассетов.
type StoryResponse struct {
	*models.Story
	AudioURL string `json:"audio_url,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// SceneResponse - сцена с публичным URL иллюстрации.
type SceneResponse struct {
	*models.StoryScene
	ImageURL string `json:"image_url,omitempty"`
}

// StoryListResponse - страница историй пользователя.
type StoryListResponse struct {
	Stories []StoryResponse `json:"stories"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

func newStoryResponse(story *models.Story, store *assets.Store) StoryResponse {
	resp := StoryResponse{Story: story}
	if story.AudioPath != nil {
		resp.AudioURL = store.PublicURL(*story.AudioPath)
	}
	if story.ImagePath != nil {
		resp.ImageURL = store.PublicURL(*story.ImagePath)
	}
	return resp
}

func newSceneResponse(scene *models.StoryScene, store *assets.Store) SceneResponse {
	resp := SceneResponse{StoryScene: scene}
	if scene.ImagePath != nil {
		resp.ImageURL = store.PublicURL(*scene.ImagePath)
	}
	return resp
}

func newStoryListResponse(stories []*models.Story, total int64, limit, offset int, store *assets.Store) StoryListResponse {
	resp := StoryListResponse{
		Stories: make([]StoryResponse, 0, len(stories)),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}
	for _, story := range stories {
		resp.Stories = append(resp.Stories, newStoryResponse(story, store))
	}
	return resp
}
