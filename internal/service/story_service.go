package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"story-server/internal/ai"
	"story-server/internal/assets"
	"story-server/internal/messaging"
	"story-server/internal/models"
	"story-server/internal/repository"
)

// Текст, который видит пользователь, если генерацию не удалось выполнить совсем.
const generationFailureText = "Error generating story: %s. Please try again or contact support."

// GenerateOptions управляет одним прогоном оркестратора.
type GenerateOptions struct {
	// ImageDescription - уже известное описание загруженного изображения.
	// Если пусто, а изображение есть, оно будет описано и закэшировано.
	ImageDescription string
	// GenerateAudioOnly пропускает генерацию текста и озвучивает существующий.
	GenerateAudioOnly bool
}

// CreateStoryInput - данные для создания новой истории.
type CreateStoryInput struct {
	Title     string
	Prompt    string
	Template  models.StoryTemplate
	VoiceID   *string
	ImageData []byte // загруженное пользователем изображение, опционально
	ImageExt  string
}

// RegenerateInput - параметры перегенерации текста.
// Задается либо новый промпт целиком, либо инструкция-модификация,
// которая добавляется к существующему промпту.
type RegenerateInput struct {
	NewPrompt     string
	Modifications string
}

// StoryService - оркестратор пайплайна: промпт → текст → озвучка → сцены.
type StoryService struct {
	storyRepo    repository.StoryRepository
	revisionRepo repository.StoryRevisionRepository
	settingsRepo repository.UserStorySettingsRepository
	text         ai.TextGenerator
	vision       ai.ImageAnalyzer
	audioSvc     *AudioService
	sceneSvc     *SceneService
	store        *assets.Store
	guard        repository.GenerationGuard
	publisher    messaging.EventPublisher
	logger       *zap.Logger
}

// NewStoryService создает оркестратор генерации историй.
func NewStoryService(
	storyRepo repository.StoryRepository,
	revisionRepo repository.StoryRevisionRepository,
	settingsRepo repository.UserStorySettingsRepository,
	text ai.TextGenerator,
	vision ai.ImageAnalyzer,
	audioSvc *AudioService,
	sceneSvc *SceneService,
	store *assets.Store,
	guard repository.GenerationGuard,
	publisher messaging.EventPublisher,
	logger *zap.Logger,
) *StoryService {
	return &StoryService{
		storyRepo:    storyRepo,
		revisionRepo: revisionRepo,
		settingsRepo: settingsRepo,
		text:         text,
		vision:       vision,
		audioSvc:     audioSvc,
		sceneSvc:     sceneSvc,
		store:        store,
		guard:        guard,
		publisher:    publisher,
		logger:       logger.Named("StoryService"),
	}
}

// CreateStory создает запись истории, сохраняет загруженное изображение
// (если есть) и синхронно запускает генерацию.
func (s *StoryService) CreateStory(ctx context.Context, userID uuid.UUID, input CreateStoryInput) (*models.Story, error) {
	if strings.TrimSpace(input.Prompt) == "" {
		return nil, fmt.Errorf("%w: prompt обязателен", models.ErrInvalidInput)
	}

	story := &models.Story{
		ID:       uuid.New(),
		UserID:   userID,
		Title:    input.Title,
		Prompt:   input.Prompt,
		Template: input.Template,
		VoiceID:  input.VoiceID,
	}
	if story.Title == "" {
		story.Title = "Untitled Story"
	}

	if len(input.ImageData) > 0 {
		relPath, err := s.store.SaveStoryImage(story.ID, input.ImageData, input.ImageExt)
		if err != nil {
			return nil, fmt.Errorf("ошибка сохранения изображения: %w", err)
		}
		story.ImagePath = &relPath
	}

	if err := s.storyRepo.Create(ctx, story); err != nil {
		return nil, err
	}

	s.Generate(ctx, story, GenerateOptions{})
	return story, nil
}

// Generate выполняет пайплайн генерации для истории. Возвращает true,
// если текст был получен (или уже существовал в режиме audio-only).
// Ошибки отдельных этапов (анализ изображения, озвучка) не влияют
// на результат по тексту. При полном провале генерации текст истории
// перезаписывается сообщением об ошибке, чтобы пользователь увидел
// хоть что-то.
func (s *StoryService) Generate(ctx context.Context, story *models.Story, opts GenerateOptions) bool {
	release, err := s.guard.Acquire(ctx, story.ID)
	if err != nil {
		s.logger.Warn("Generation already in progress",
			zap.String("storyID", story.ID.String()))
		return false
	}
	defer release()

	imageDescription := opts.ImageDescription

	// Шаг 1: описание изображения кэшируется независимо от дальнейших этапов.
	if story.ImagePath != nil && imageDescription == "" {
		if story.ImageDescription != nil && *story.ImageDescription != "" {
			imageDescription = *story.ImageDescription
		} else {
			imageDescription = s.describeStoryImage(ctx, story)
		}
	}

	// Шаг 2: генерация текста.
	if !opts.GenerateAudioOnly {
		if err := s.generateText(ctx, story, story.UserID, story.Prompt, imageDescription); err != nil {
			s.logger.Error("Story text generation failed",
				zap.Error(err), zap.String("storyID", story.ID.String()))
			s.storeFailureText(ctx, story, err)
			return false
		}
		s.publishEvent(ctx, messaging.EventStoryGenerated, story)
	}

	if strings.TrimSpace(story.Text()) == "" {
		s.logger.Error("No story text available for audio",
			zap.String("storyID", story.ID.String()))
		return false
	}

	// Шаг 3: озвучка. Ошибка не откатывает сохраненный текст.
	if _, err := s.audioSvc.GenerateStoryAudio(ctx, story); err != nil {
		s.logger.Error("Audio generation failed, story text preserved",
			zap.Error(err), zap.String("storyID", story.ID.String()))
	} else {
		s.publishEvent(ctx, messaging.EventStoryAudioReady, story)
	}

	return true
}

// Regenerate обновляет промпт истории и повторяет пайплайн текст → аудио.
// Закэшированное описание изображения переиспользуется без повторного анализа.
func (s *StoryService) Regenerate(ctx context.Context, story *models.Story, actorID uuid.UUID, input RegenerateInput) (bool, error) {
	prompt := story.Prompt
	switch {
	case strings.TrimSpace(input.NewPrompt) != "":
		prompt = input.NewPrompt
	case strings.TrimSpace(input.Modifications) != "":
		prompt = fmt.Sprintf("%s\n\nModifications requested: %s", story.Prompt, input.Modifications)
	}

	if prompt != story.Prompt {
		if err := s.storyRepo.UpdatePrompt(ctx, story.ID, prompt); err != nil {
			return false, err
		}
		story.Prompt = prompt
	}

	release, err := s.guard.Acquire(ctx, story.ID)
	if err != nil {
		return false, err
	}
	defer release()

	imageDescription := ""
	if story.ImageDescription != nil {
		imageDescription = *story.ImageDescription
	}

	if err := s.generateText(ctx, story, actorID, prompt, imageDescription); err != nil {
		s.logger.Error("Story regeneration failed",
			zap.Error(err), zap.String("storyID", story.ID.String()))
		s.storeFailureText(ctx, story, err)
		return false, nil
	}
	s.publishEvent(ctx, messaging.EventStoryGenerated, story)

	if _, err := s.audioSvc.GenerateStoryAudio(ctx, story); err != nil {
		s.logger.Error("Audio regeneration failed, story text preserved",
			zap.Error(err), zap.String("storyID", story.ID.String()))
	} else {
		s.publishEvent(ctx, messaging.EventStoryAudioReady, story)
	}

	return true, nil
}

// GenerateAudio озвучивает существующий текст истории, при необходимости
// сменив голос.
func (s *StoryService) GenerateAudio(ctx context.Context, story *models.Story, voiceID *string) error {
	if voiceID != nil && *voiceID != "" {
		if !ai.IsKnownVoice(*voiceID) {
			return fmt.Errorf("%w: неизвестный голос %q", models.ErrInvalidInput, *voiceID)
		}
		if err := s.storyRepo.UpdateVoice(ctx, story.ID, voiceID); err != nil {
			return err
		}
		story.VoiceID = voiceID
	}

	release, err := s.guard.Acquire(ctx, story.ID)
	if err != nil {
		return err
	}
	defer release()

	if _, err := s.audioSvc.GenerateStoryAudio(ctx, story); err != nil {
		return err
	}
	s.publishEvent(ctx, messaging.EventStoryAudioReady, story)
	return nil
}

// GenerateScenes делегирует пайплайну сцен и публикует событие об успехе.
func (s *StoryService) GenerateScenes(ctx context.Context, story *models.Story) ([]*models.StoryScene, error) {
	scenes, err := s.sceneSvc.GenerateScenes(ctx, story)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, messaging.EventStoryScenesReady, story)
	return scenes, nil
}

// UpdateText - ручное редактирование текста. Непустой предыдущий текст
// снимается в ревизию до фиксации нового.
func (s *StoryService) UpdateText(ctx context.Context, story *models.Story, actorID uuid.UUID, newText string) error {
	if err := s.snapshotRevision(ctx, story, actorID, newText); err != nil {
		return err
	}
	if err := s.storyRepo.UpdateText(ctx, story.ID, newText, nil); err != nil {
		return err
	}
	story.StoryText = &newText
	return nil
}

// DeleteStory удаляет историю вместе с ее ассетами на диске.
func (s *StoryService) DeleteStory(ctx context.Context, story *models.Story) error {
	if err := s.storyRepo.Delete(ctx, story.ID); err != nil {
		return err
	}
	if err := s.store.RemoveStoryAssets(story.ID); err != nil {
		s.logger.Warn("Failed to remove story assets",
			zap.Error(err), zap.String("storyID", story.ID.String()))
	}
	return nil
}

// generateText строит системный промпт, вызывает генератор текста и
// сохраняет текст вместе с использованным промптом. Предыдущий непустой
// текст снимается в ревизию.
func (s *StoryService) generateText(ctx context.Context, story *models.Story, actorID uuid.UUID, prompt, imageDescription string) error {
	settings := s.loadSettings(ctx, story.UserID)
	systemPrompt := BuildSystemPrompt(story.Template, settings)
	userMessage := buildUserMessage(prompt, imageDescription)

	temperature := float64(storyTemperature)
	maxTokens := storyMaxTokens
	storyText, usage, err := s.text.GenerateText(ctx, systemPrompt, userMessage, ai.GenerationParams{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ai.ErrAIGenerationFailed, err)
	}
	if strings.TrimSpace(storyText) == "" {
		return fmt.Errorf("%w: генератор вернул пустой текст", ai.ErrAIGenerationFailed)
	}

	if err := s.snapshotRevision(ctx, story, actorID, storyText); err != nil {
		return err
	}

	if err := s.storyRepo.UpdateText(ctx, story.ID, storyText, &systemPrompt); err != nil {
		return err
	}
	story.StoryText = &storyText
	story.SystemPromptUsed = &systemPrompt

	s.logger.Info("Story text generated",
		zap.String("storyID", story.ID.String()),
		zap.Int("chars", len(storyText)),
		zap.Int("promptTokens", usage.PromptTokens),
		zap.Int("completionTokens", usage.CompletionTokens))
	return nil
}

// snapshotRevision снимает ревизию, если непустой текст заменяется другим.
func (s *StoryService) snapshotRevision(ctx context.Context, story *models.Story, actorID uuid.UUID, newText string) error {
	oldText := story.Text()
	if strings.TrimSpace(oldText) == "" || oldText == newText {
		return nil
	}
	revision := &models.StoryRevision{
		StoryID:   story.ID,
		StoryText: oldText,
		EditedBy:  actorID,
	}
	if err := s.revisionRepo.Create(ctx, revision); err != nil {
		return fmt.Errorf("ошибка сохранения ревизии: %w", err)
	}
	return nil
}

// describeStoryImage описывает загруженное изображение и кэширует
// результат. Ошибка анализа не прерывает генерацию.
func (s *StoryService) describeStoryImage(ctx context.Context, story *models.Story) string {
	imageData, err := s.store.ReadAsset(*story.ImagePath)
	if err != nil {
		s.logger.Warn("Failed to read story image for analysis",
			zap.Error(err), zap.String("storyID", story.ID.String()))
		return ""
	}

	description, err := s.vision.DescribeImage(ctx, imageData)
	if err != nil {
		s.logger.Warn("Image analysis failed, continuing without description",
			zap.Error(err), zap.String("storyID", story.ID.String()))
		return ""
	}

	if err := s.storyRepo.UpdateImageDescription(ctx, story.ID, description); err != nil {
		s.logger.Warn("Failed to cache image description",
			zap.Error(err), zap.String("storyID", story.ID.String()))
	} else {
		story.ImageDescription = &description
	}
	return description
}

// loadSettings возвращает настройки пользователя или nil, если их еще нет.
func (s *StoryService) loadSettings(ctx context.Context, userID uuid.UUID) *models.UserStorySettings {
	settings, err := s.settingsRepo.GetByUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Warn("Failed to load user settings, using defaults",
				zap.Error(err), zap.String("userID", userID.String()))
		}
		return nil
	}
	return settings
}

// storeFailureText записывает сообщение об ошибке в текст истории,
// чтобы пользователь не остался с пустым экраном.
func (s *StoryService) storeFailureText(ctx context.Context, story *models.Story, genErr error) {
	failure := fmt.Sprintf(generationFailureText, genErr.Error())
	if err := s.storyRepo.UpdateText(ctx, story.ID, failure, nil); err != nil {
		s.logger.Error("Failed to store failure text",
			zap.Error(err), zap.String("storyID", story.ID.String()))
		return
	}
	story.StoryText = &failure
}

func (s *StoryService) publishEvent(ctx context.Context, eventType string, story *models.Story) {
	err := s.publisher.PublishStoryEvent(ctx, messaging.StoryEvent{
		Type:    eventType,
		StoryID: story.ID,
		UserID:  story.UserID,
	})
	if err != nil {
		s.logger.Warn("Failed to publish story event",
			zap.Error(err), zap.String("type", eventType))
	}
}
