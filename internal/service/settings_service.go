package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"story-server/internal/models"
	"story-server/internal/repository"
)

// SettingsService управляет настройками генерации историй пользователя.
// Настройки создаются лениво со значениями по умолчанию при первом
// обращении.
type SettingsService struct {
	settingsRepo repository.UserStorySettingsRepository
	logger       *zap.Logger
}

// NewSettingsService создает сервис настроек.
func NewSettingsService(settingsRepo repository.UserStorySettingsRepository, logger *zap.Logger) *SettingsService {
	return &SettingsService{
		settingsRepo: settingsRepo,
		logger:       logger.Named("SettingsService"),
	}
}

// GetOrCreate возвращает настройки пользователя, создавая запись
// по умолчанию, если ее еще нет.
func (s *SettingsService) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.UserStorySettings, error) {
	settings, err := s.settingsRepo.GetByUser(ctx, userID)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	settings = models.DefaultStorySettings(userID)
	if createErr := s.settingsRepo.Create(ctx, settings); createErr != nil {
		// Гонка с параллельным запросом: запись могла появиться между Get и Create.
		if existing, getErr := s.settingsRepo.GetByUser(ctx, userID); getErr == nil {
			return existing, nil
		}
		return nil, createErr
	}
	s.logger.Info("Default story settings created", zap.String("userID", userID.String()))
	return settings, nil
}

// Update валидирует и сохраняет настройки пользователя.
func (s *SettingsService) Update(ctx context.Context, userID uuid.UUID, settings *models.UserStorySettings) (*models.UserStorySettings, error) {
	if err := validateSettings(settings); err != nil {
		return nil, err
	}
	settings.UserID = userID

	// Настройки могли еще не существовать, если пользователь сразу сохраняет.
	if _, err := s.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.settingsRepo.Update(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func validateSettings(settings *models.UserStorySettings) error {
	switch settings.AgeRange {
	case models.AgeRange3to5, models.AgeRange6to8, models.AgeRange9to12:
	default:
		return fmt.Errorf("%w: недопустимый age_range %q", models.ErrInvalidInput, settings.AgeRange)
	}
	switch settings.LanguageLevel {
	case models.LanguageSimple, models.LanguageModerate, models.LanguageAdvanced:
	default:
		return fmt.Errorf("%w: недопустимый language_level %q", models.ErrInvalidInput, settings.LanguageLevel)
	}
	if settings.MaxWordCount < 100 || settings.MaxWordCount > 2000 {
		return fmt.Errorf("%w: max_word_count вне диапазона 100-2000", models.ErrInvalidInput)
	}
	if settings.StoryParts < 3 || settings.StoryParts > 8 {
		return fmt.Errorf("%w: story_parts вне диапазона 3-8", models.ErrInvalidInput)
	}
	return nil
}
