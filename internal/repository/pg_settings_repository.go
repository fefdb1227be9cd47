package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"story-server/internal/models"
)

var _ UserStorySettingsRepository = (*pgSettingsRepository)(nil)

type pgSettingsRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgSettingsRepository создает репозиторий настроек генерации историй.
func NewPgSettingsRepository(db DBTX, logger *zap.Logger) UserStorySettingsRepository {
	return &pgSettingsRepository{
		db:     db,
		logger: logger.Named("PgSettingsRepo"),
	}
}

const settingsColumns = `id, user_id, age_range, genre_preference, language_level, moral_theme,
include_diversity, include_sensory_details, include_interactive_questions, include_sound_effects,
explain_complex_words, max_word_count, story_parts, created_at, updated_at`

const createSettingsQuery = `
INSERT INTO user_story_settings (id, user_id, age_range, genre_preference, language_level, moral_theme,
	include_diversity, include_sensory_details, include_interactive_questions, include_sound_effects,
	explain_complex_words, max_word_count, story_parts, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)`

const getSettingsByUserQuery = `
SELECT ` + settingsColumns + `
FROM user_story_settings
WHERE user_id = $1`

const updateSettingsQuery = `
UPDATE user_story_settings
SET age_range = $2,
	genre_preference = $3,
	language_level = $4,
	moral_theme = $5,
	include_diversity = $6,
	include_sensory_details = $7,
	include_interactive_questions = $8,
	include_sound_effects = $9,
	explain_complex_words = $10,
	max_word_count = $11,
	story_parts = $12,
	updated_at = now()
WHERE user_id = $1
RETURNING ` + settingsColumns

func (r *pgSettingsRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*models.UserStorySettings, error) {
	var settings models.UserStorySettings
	err := pgxscan.Get(ctx, r.db, &settings, getSettingsByUserQuery, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get story settings", zap.Error(err), zap.String("userID", userID.String()))
		return nil, fmt.Errorf("ошибка получения настроек: %w", err)
	}
	return &settings, nil
}

func (r *pgSettingsRepository) Create(ctx context.Context, settings *models.UserStorySettings) error {
	if settings.ID == uuid.Nil {
		settings.ID = uuid.New()
	}
	if settings.CreatedAt.IsZero() {
		settings.CreatedAt = time.Now()
	}
	settings.UpdatedAt = settings.CreatedAt

	_, err := r.db.Exec(ctx, createSettingsQuery,
		settings.ID,
		settings.UserID,
		settings.AgeRange,
		settings.GenrePreference,
		settings.LanguageLevel,
		settings.MoralTheme,
		settings.IncludeDiversity,
		settings.IncludeSensoryDetails,
		settings.IncludeInteractiveQuestions,
		settings.IncludeSoundEffects,
		settings.ExplainComplexWords,
		settings.MaxWordCount,
		settings.StoryParts,
		settings.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create story settings", zap.Error(err), zap.String("userID", settings.UserID.String()))
		return fmt.Errorf("ошибка создания настроек: %w", err)
	}
	return nil
}

// Update перезаписывает настройки пользователя и возвращает актуальное состояние.
func (r *pgSettingsRepository) Update(ctx context.Context, settings *models.UserStorySettings) error {
	err := pgxscan.Get(ctx, r.db, settings, updateSettingsQuery,
		settings.UserID,
		settings.AgeRange,
		settings.GenrePreference,
		settings.LanguageLevel,
		settings.MoralTheme,
		settings.IncludeDiversity,
		settings.IncludeSensoryDetails,
		settings.IncludeInteractiveQuestions,
		settings.IncludeSoundEffects,
		settings.ExplainComplexWords,
		settings.MaxWordCount,
		settings.StoryParts,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ErrNotFound
		}
		r.logger.Error("Failed to update story settings", zap.Error(err), zap.String("userID", settings.UserID.String()))
		return fmt.Errorf("ошибка обновления настроек: %w", err)
	}
	return nil
}
