package models

import (
	"time"

	"github.com/google/uuid"
)

// StoryTemplate определяет жанровый шаблон истории.
// Совпадает с типом ENUM 'story_template' в БД.
type StoryTemplate string

const (
	TemplateAdventure   StoryTemplate = "adventure"
	TemplateFantasy     StoryTemplate = "fantasy"
	TemplateSciFi       StoryTemplate = "sci-fi"
	TemplateMystery     StoryTemplate = "mystery"
	TemplateEducational StoryTemplate = "educational"
)

// DefaultVoiceID используется, когда у истории не выбран голос.
const DefaultVoiceID = "alloy"

// Story представляет сгенерированную историю в базе данных.
type Story struct {
	ID               uuid.UUID     `json:"id" db:"id"`
	UserID           uuid.UUID     `json:"user_id" db:"user_id"` // Владелец истории
	Title            string        `json:"title" db:"title"`
	Prompt           string        `json:"prompt" db:"prompt"`                           // Пользовательский запрос
	SystemPromptUsed *string       `json:"system_prompt_used,omitempty" db:"system_prompt_used"` // Фактически отправленный системный промпт (аудит)
	StoryText        *string       `json:"story_text,omitempty" db:"story_text"`
	Template         StoryTemplate `json:"template" db:"template"`
	VoiceID          *string       `json:"voice_id,omitempty" db:"voice_id"`
	AudioPath        *string       `json:"audio_path,omitempty" db:"audio_path"` // Относительный путь к mp3/wav
	ImagePath        *string       `json:"image_path,omitempty" db:"image_path"` // Загруженное пользователем изображение
	ImageDescription *string       `json:"image_description,omitempty" db:"image_description"`
	IsPublished      bool          `json:"is_published" db:"is_published"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`
}

// ResolveVoice возвращает выбранный голос истории или голос по умолчанию.
func (s *Story) ResolveVoice() string {
	if s.VoiceID != nil && *s.VoiceID != "" {
		return *s.VoiceID
	}
	return DefaultVoiceID
}

// Text возвращает текст истории или пустую строку, если текста еще нет.
func (s *Story) Text() string {
	if s.StoryText == nil {
		return ""
	}
	return *s.StoryText
}

// StoryRevision - неизменяемый снимок текста истории до перезаписи.
// Создается только когда непустой текст заменяется другим текстом.
type StoryRevision struct {
	ID        uuid.UUID `json:"id" db:"id"`
	StoryID   uuid.UUID `json:"story_id" db:"story_id"`
	StoryText string    `json:"story_text" db:"story_text"`
	EditedBy  uuid.UUID `json:"edited_by" db:"edited_by"` // Кто инициировал перезапись
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// StoryScene - упорядоченный фрагмент истории с собственной иллюстрацией.
// Пара (story_id, scene_number) уникальна.
type StoryScene struct {
	ID          uuid.UUID `json:"id" db:"id"`
	StoryID     uuid.UUID `json:"story_id" db:"story_id"`
	SceneNumber int       `json:"scene_number" db:"scene_number"`
	SceneText   string    `json:"scene_text" db:"scene_text"`
	ImagePrompt *string   `json:"image_prompt,omitempty" db:"image_prompt"` // Промпт, использованный для генерации
	ImagePath   *string   `json:"image_path,omitempty" db:"image_path"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
