package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"story-server/internal/ai"
	"story-server/internal/assets"
	"story-server/internal/models"
	"story-server/internal/repository"
	"story-server/internal/schemas"
)

// Параметры генерации иллюстраций сцен.
const (
	scenePromptMaxTextLen = 500
	sceneImageWidth       = 768
	sceneImageHeight      = 1024 // портретная ориентация
	sceneImageExt         = ".png"
)

// SceneService разбивает текст истории на сцены и генерирует
// иллюстрацию к каждой из них.
type SceneService struct {
	images    ai.ImageGenerator
	store     *assets.Store
	sceneRepo repository.StorySceneRepository
	logger    *zap.Logger
}

// NewSceneService создает сервис сцен.
func NewSceneService(
	images ai.ImageGenerator,
	store *assets.Store,
	sceneRepo repository.StorySceneRepository,
	logger *zap.Logger,
) *SceneService {
	return &SceneService{
		images:    images,
		store:     store,
		sceneRepo: sceneRepo,
		logger:    logger.Named("SceneService"),
	}
}

// buildImagePrompt строит промпт иллюстрации: ограниченный префикс текста
// сцены, обернутый в фиксированный стилевой шаблон. Префикс режется по
// границе руны, чтобы не порвать многобайтовый символ.
func buildImagePrompt(sceneText string) string {
	text := strings.TrimSpace(sceneText)
	if runes := []rune(text); len(runes) > scenePromptMaxTextLen {
		text = string(runes[:scenePromptMaxTextLen])
	}
	return fmt.Sprintf("A beautiful, colorful, child-friendly portrait illustration for a children's story scene. %s. Style: whimsical, vibrant, safe for children, portrait orientation, detailed characters and setting.", text)
}

// GenerateScenes полностью пересоздает сцены истории: парсит текст,
// удаляет существующие записи и генерирует иллюстрацию к каждому
// фрагменту. Ошибка по одной сцене не прерывает остальные; общая
// ошибка возвращается только если не удалась ни одна сцена.
func (s *SceneService) GenerateScenes(ctx context.Context, story *models.Story) ([]*models.StoryScene, error) {
	parts, err := s.parseParts(story)
	if err != nil {
		return nil, err
	}

	deleted, err := s.sceneRepo.DeleteByStory(ctx, story.ID)
	if err != nil {
		return nil, err
	}
	if deleted > 0 {
		s.logger.Info("Deleted existing scenes before regeneration",
			zap.Int64("deleted", deleted), zap.String("storyID", story.ID.String()))
	}

	s.logger.Info("Generating scenes",
		zap.Int("parts", len(parts)), zap.String("storyID", story.ID.String()))

	var scenes []*models.StoryScene
	for _, part := range parts {
		scene, genErr := s.generateScene(ctx, story, part)
		if genErr != nil {
			s.logger.Error("Failed to generate scene, continuing",
				zap.Error(genErr),
				zap.Int("sceneNumber", part.Number),
				zap.String("storyID", story.ID.String()))
			continue
		}
		scenes = append(scenes, scene)
	}

	if len(scenes) == 0 {
		return nil, fmt.Errorf("%w: не удалось сгенерировать ни одной сцены", models.ErrAllImageProvidersDown)
	}
	return scenes, nil
}

// InitializeScenes - неразрушающий вариант: сцены создаются или
// обновляются по номеру, записи для несуществующих больше фрагментов
// не трогаются.
func (s *SceneService) InitializeScenes(ctx context.Context, story *models.Story) ([]*models.StoryScene, error) {
	parts, err := s.parseParts(story)
	if err != nil {
		return nil, err
	}

	var scenes []*models.StoryScene
	for _, part := range parts {
		scene := &models.StoryScene{
			StoryID:     story.ID,
			SceneNumber: part.Number,
			SceneText:   part.Text,
		}
		if upsertErr := s.sceneRepo.Upsert(ctx, scene); upsertErr != nil {
			s.logger.Error("Failed to upsert scene, continuing",
				zap.Error(upsertErr),
				zap.Int("sceneNumber", part.Number),
				zap.String("storyID", story.ID.String()))
			continue
		}
		scenes = append(scenes, scene)
	}

	if len(scenes) == 0 {
		return nil, fmt.Errorf("не удалось сохранить ни одной сцены")
	}
	return scenes, nil
}

// AddScene вручную добавляет сцену с заданным номером и текстом.
// Иллюстрация не генерируется. Дубликат номера отклоняется.
func (s *SceneService) AddScene(ctx context.Context, story *models.Story, sceneNumber int, sceneText string) (*models.StoryScene, error) {
	if sceneNumber < 1 {
		return nil, fmt.Errorf("%w: номер сцены должен быть положительным", models.ErrInvalidInput)
	}
	if strings.TrimSpace(sceneText) == "" {
		return nil, fmt.Errorf("%w: текст сцены пуст", models.ErrInvalidInput)
	}

	if _, err := s.sceneRepo.GetByStoryAndNumber(ctx, story.ID, sceneNumber); err == nil {
		return nil, models.ErrSceneExists
	} else if !errors.Is(err, models.ErrNotFound) && !errors.Is(err, models.ErrSceneNotFound) {
		return nil, err
	}

	scene := &models.StoryScene{
		StoryID:     story.ID,
		SceneNumber: sceneNumber,
		SceneText:   sceneText,
	}
	if err := s.sceneRepo.Create(ctx, scene); err != nil {
		return nil, err
	}
	return scene, nil
}

// UploadSceneImage привязывает загруженное пользователем изображение к
// сцене. Если сцены с таким номером нет, она создается; текст при этом
// берется из соответствующего фрагмента истории, когда он есть.
func (s *SceneService) UploadSceneImage(ctx context.Context, story *models.Story, sceneNumber int, imageData []byte, ext string) (*models.StoryScene, error) {
	if sceneNumber < 1 {
		return nil, fmt.Errorf("%w: номер сцены должен быть положительным", models.ErrInvalidInput)
	}
	if len(imageData) == 0 {
		return nil, fmt.Errorf("%w: файл изображения пуст", models.ErrInvalidInput)
	}

	scene, err := s.sceneRepo.GetByStoryAndNumber(ctx, story.ID, sceneNumber)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) && !errors.Is(err, models.ErrSceneNotFound) {
			return nil, err
		}
		scene = &models.StoryScene{
			StoryID:     story.ID,
			SceneNumber: sceneNumber,
			SceneText:   s.partText(story, sceneNumber),
		}
		if err := s.sceneRepo.Create(ctx, scene); err != nil {
			return nil, err
		}
	}

	relPath, err := s.store.SaveSceneImage(story.ID, sceneNumber, imageData, ext)
	if err != nil {
		return nil, fmt.Errorf("ошибка сохранения изображения сцены: %w", err)
	}

	// Ручная загрузка, промпт не меняем
	if err := s.sceneRepo.UpdateImage(ctx, scene.ID, &relPath, scene.ImagePrompt); err != nil {
		return nil, err
	}
	scene.ImagePath = &relPath
	return scene, nil
}

// partText возвращает текст фрагмента истории с данным номером или
// пустую строку, если текст не парсится.
func (s *SceneService) partText(story *models.Story, sceneNumber int) string {
	for _, part := range schemas.ParseStoryParts(story.Text()) {
		if part.Number == sceneNumber {
			return part.Text
		}
	}
	return ""
}

// RegenerateSceneImage перегенерирует иллюстрацию одной сцены.
func (s *SceneService) RegenerateSceneImage(ctx context.Context, scene *models.StoryScene) error {
	prompt := buildImagePrompt(scene.SceneText)
	imageData, err := s.images.GenerateImage(ctx, prompt, sceneImageWidth, sceneImageHeight)
	if err != nil {
		return fmt.Errorf("%w: %v", ai.ErrImageGenerationFailed, err)
	}

	relPath, err := s.store.SaveSceneImage(scene.StoryID, scene.SceneNumber, imageData, sceneImageExt)
	if err != nil {
		return fmt.Errorf("ошибка сохранения иллюстрации сцены: %w", err)
	}

	if err := s.sceneRepo.UpdateImage(ctx, scene.ID, &relPath, &prompt); err != nil {
		return err
	}
	scene.ImagePath = &relPath
	scene.ImagePrompt = &prompt
	return nil
}

func (s *SceneService) parseParts(story *models.Story) ([]schemas.ScenePart, error) {
	if strings.TrimSpace(story.Text()) == "" {
		return nil, models.ErrStoryTextMissing
	}
	parts := schemas.ParseStoryParts(story.Text())
	if len(parts) == 0 {
		return nil, models.ErrNoScenesParsed
	}
	return parts, nil
}

func (s *SceneService) generateScene(ctx context.Context, story *models.Story, part schemas.ScenePart) (*models.StoryScene, error) {
	prompt := buildImagePrompt(part.Text)

	imageData, err := s.images.GenerateImage(ctx, prompt, sceneImageWidth, sceneImageHeight)
	if err != nil {
		return nil, fmt.Errorf("генерация иллюстрации сцены %d: %w", part.Number, err)
	}

	relPath, err := s.store.SaveSceneImage(story.ID, part.Number, imageData, sceneImageExt)
	if err != nil {
		return nil, fmt.Errorf("сохранение иллюстрации сцены %d: %w", part.Number, err)
	}

	scene := &models.StoryScene{
		StoryID:     story.ID,
		SceneNumber: part.Number,
		SceneText:   part.Text,
		ImagePrompt: &prompt,
		ImagePath:   &relPath,
	}
	if err := s.sceneRepo.Create(ctx, scene); err != nil {
		return nil, fmt.Errorf("сохранение сцены %d: %w", part.Number, err)
	}
	return scene, nil
}
