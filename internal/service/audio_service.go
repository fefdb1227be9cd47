package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"story-server/internal/ai"
	"story-server/internal/assets"
	"story-server/internal/audio"
	"story-server/internal/models"
	"story-server/internal/repository"
)

// AudioService превращает текст истории в сохраненный аудио-ассет:
// синтез PCM, транскодирование, запись на диск, обновление ссылки
// и уборка предыдущих файлов.
type AudioService struct {
	speech    ai.SpeechSynthesizer
	encoder   *audio.Encoder
	store     *assets.Store
	storyRepo repository.StoryRepository
	logger    *zap.Logger
}

// NewAudioService создает сервис озвучки историй.
func NewAudioService(
	speech ai.SpeechSynthesizer,
	encoder *audio.Encoder,
	store *assets.Store,
	storyRepo repository.StoryRepository,
	logger *zap.Logger,
) *AudioService {
	return &AudioService{
		speech:    speech,
		encoder:   encoder,
		store:     store,
		storyRepo: storyRepo,
		logger:    logger.Named("AudioService"),
	}
}

// GenerateStoryAudio синтезирует озвучку текста истории и привязывает
// ее к истории. Старый аудиофайл удаляется только после того, как
// новая ссылка зафиксирована в БД.
func (s *AudioService) GenerateStoryAudio(ctx context.Context, story *models.Story) (string, error) {
	text := strings.TrimSpace(story.Text())
	if text == "" {
		return "", models.ErrStoryTextMissing
	}

	voiceID := story.ResolveVoice()
	pcmData, err := s.speech.Synthesize(ctx, text, voiceID)
	if err != nil {
		s.logger.Error("Speech synthesis failed",
			zap.Error(err),
			zap.String("storyID", story.ID.String()),
			zap.String("voiceID", voiceID))
		return "", fmt.Errorf("%w: %v", models.ErrNoAudioProduced, err)
	}

	encoded := s.encoder.Encode(ctx, pcmData, s.speech.SampleRate())

	relPath, err := s.store.SaveStoryAudio(story.ID, encoded.Data, encoded.Ext)
	if err != nil {
		s.logger.Error("Failed to save audio asset",
			zap.Error(err), zap.String("storyID", story.ID.String()))
		return "", fmt.Errorf("%w: %v", models.ErrNoAudioProduced, err)
	}

	oldPath := story.AudioPath
	if err := s.storyRepo.UpdateAudioPath(ctx, story.ID, &relPath); err != nil {
		// Ссылка не зафиксирована: свежий файл не должен остаться сиротой.
		if delErr := s.store.Delete(relPath); delErr != nil {
			s.logger.Warn("Failed to clean up orphaned audio file",
				zap.Error(delErr), zap.String("path", relPath))
		}
		return "", fmt.Errorf("%w: %v", models.ErrNoAudioProduced, err)
	}
	story.AudioPath = &relPath

	if oldPath != nil && *oldPath != "" && *oldPath != relPath {
		if err := s.store.DeleteAudio(*oldPath); err != nil {
			s.logger.Warn("Failed to delete previous audio file",
				zap.Error(err), zap.String("path", *oldPath))
		}
	}
	if removed := s.store.SweepStaleAudio(story.ID, relPath); removed > 0 {
		s.logger.Info("Swept stale audio files",
			zap.Int("removed", removed), zap.String("storyID", story.ID.String()))
	}

	s.logger.Info("Story audio generated",
		zap.String("storyID", story.ID.String()),
		zap.String("path", relPath),
		zap.String("format", encoded.Ext))
	return relPath, nil
}
